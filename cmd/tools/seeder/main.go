package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	storeIDs := seedStores(db)
	productIDs := seedProducts(db, storeIDs)
	seedExtraCharges(db, storeIDs, productIDs)
	seedOffers(db, storeIDs, productIDs)
	seedCoupons(db, storeIDs)

	log.Println("Seeding completed successfully!")
}

func seedStores(db *sql.DB) map[string]string {
	stores := []struct {
		Name        string
		PlatformFee sql.NullInt64
	}{
		{"Sharma General Store", sql.NullInt64{}},
		{"Patel Electronics", sql.NullInt64{Int64: 900, Valid: true}},
		{"Green Basket Organics", sql.NullInt64{}},
	}

	fmt.Println("Seeding Stores...")
	ids := make(map[string]string)
	for _, s := range stores {
		var id string
		err := db.QueryRow(`
			INSERT INTO stores (retailer_id, name, platform_fee)
			VALUES (gen_random_uuid(), $1, $2)
			RETURNING id;
		`, s.Name, s.PlatformFee).Scan(&id)
		if err != nil {
			log.Printf("Failed to seed store %s: %v", s.Name, err)
			continue
		}
		ids[s.Name] = id
	}
	return ids
}

func seedProducts(db *sql.DB, storeIDs map[string]string) map[string]string {
	products := []struct {
		Store     string
		Title     string
		Price     int64
		MRP       int64
		Stock     sql.NullInt32
		Threshold int32
	}{
		{"Sharma General Store", "Basmati Rice 5kg", 64900, 79900, sql.NullInt32{Int32: 120, Valid: true}, 10},
		{"Sharma General Store", "Toor Dal 1kg", 15900, 18900, sql.NullInt32{Int32: 200, Valid: true}, 20},
		{"Sharma General Store", "Sunflower Oil 1L", 13900, 16500, sql.NullInt32{Int32: 80, Valid: true}, 10},
		{"Patel Electronics", "Bluetooth Earbuds", 149900, 249900, sql.NullInt32{Int32: 35, Valid: true}, 5},
		{"Patel Electronics", "Power Bank 10000mAh", 99900, 159900, sql.NullInt32{Int32: 50, Valid: true}, 5},
		{"Patel Electronics", "USB-C Cable 1m", 29900, 49900, sql.NullInt32{}, 0},
		{"Green Basket Organics", "Organic Honey 500g", 42900, 49900, sql.NullInt32{Int32: 40, Valid: true}, 5},
		{"Green Basket Organics", "Cold Pressed Coconut Oil", 34900, 39900, sql.NullInt32{Int32: 25, Valid: true}, 5},
	}

	fmt.Println("Seeding Products...")
	ids := make(map[string]string)
	for _, p := range products {
		storeID, ok := storeIDs[p.Store]
		if !ok {
			log.Printf("Missing store ID for %s", p.Store)
			continue
		}
		var id string
		err := db.QueryRow(`
			INSERT INTO products (store_id, title, price, mrp, stock, low_stock_threshold)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;
		`, storeID, p.Title, p.Price, p.MRP, p.Stock, p.Threshold).Scan(&id)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Title, err)
			continue
		}
		ids[p.Title] = id
	}
	return ids
}

func seedExtraCharges(db *sql.DB, storeIDs, productIDs map[string]string) {
	fmt.Println("Seeding Extra Charges...")
	if id, ok := productIDs["Bluetooth Earbuds"]; ok {
		if _, err := db.Exec(`
			INSERT INTO extra_charges (owner_type, owner_id, label, kind, amount)
			VALUES ('product', $1, 'Fragile packaging', 'flat', 2500);
		`, id); err != nil {
			log.Printf("Failed to seed product charge: %v", err)
		}
	}
	if id, ok := storeIDs["Green Basket Organics"]; ok {
		if _, err := db.Exec(`
			INSERT INTO extra_charges (owner_type, owner_id, label, kind, percent_bps)
			VALUES ('store', $1, 'Cold chain handling', 'percent', 150);
		`, id); err != nil {
			log.Printf("Failed to seed store charge: %v", err)
		}
	}
}

func seedOffers(db *sql.DB, storeIDs, productIDs map[string]string) {
	fmt.Println("Seeding Offers...")
	if id, ok := storeIDs["Sharma General Store"]; ok {
		if _, err := db.Exec(`
			INSERT INTO store_offers (store_id, label, kind, percent_bps, min_order_value)
			VALUES ($1, '10% off above Rs 500', 'percentage_discount', 1000, 50000);
		`, id); err != nil {
			log.Printf("Failed to seed percentage offer: %v", err)
		}
	}
	if id, ok := storeIDs["Patel Electronics"]; ok {
		if _, err := db.Exec(`
			INSERT INTO store_offers (store_id, label, kind, flat_amount, min_order_value)
			VALUES ($1, 'Rs 200 off above Rs 2000', 'flat_discount', 20000, 200000);
		`, id); err != nil {
			log.Printf("Failed to seed flat offer: %v", err)
		}
	}
	storeID, ok := storeIDs["Green Basket Organics"]
	honeyID, okHoney := productIDs["Organic Honey 500g"]
	if ok && okHoney {
		if _, err := db.Exec(`
			INSERT INTO store_offers (store_id, label, kind, product_ids)
			VALUES ($1, 'Buy one get one on honey', 'buy_one_get_one', ARRAY[$2]::uuid[]);
		`, storeID, honeyID); err != nil {
			log.Printf("Failed to seed bogo offer: %v", err)
		}
	}
}

func seedCoupons(db *sql.DB, storeIDs map[string]string) {
	fmt.Println("Seeding Coupons...")
	if _, err := db.Exec(`
		INSERT INTO coupons (code, kind, value, min_order_value, valid_from, valid_until, eligibility)
		VALUES ('FLAT50', 'flat', 5000, 30000, now(), now() + INTERVAL '1 year', 'all');
	`); err != nil {
		log.Printf("Failed to seed coupon FLAT50: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO coupons (code, kind, percent_bps, max_discount, valid_from, valid_until, eligibility, single_use)
		VALUES ('WELCOME10', 'percentage', 1000, 10000, now(), now() + INTERVAL '1 year', 'new_user', true);
	`); err != nil {
		log.Printf("Failed to seed coupon WELCOME10: %v", err)
	}
	if storeID, ok := storeIDs["Patel Electronics"]; ok {
		if _, err := db.Exec(`
			INSERT INTO coupons (code, kind, percent_bps, max_discount, min_order_value, usage_limit, valid_from, valid_until, store_id)
			VALUES ('PATEL5', 'percentage', 500, 50000, 100000, 100, now(), now() + INTERVAL '6 months', $1);
		`, storeID); err != nil {
			log.Printf("Failed to seed coupon PATEL5: %v", err)
		}
	}
}
