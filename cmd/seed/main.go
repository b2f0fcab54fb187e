package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/catalog"
	"github.com/tiffindesk/api/internal/config"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/logger"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type starter struct {
	scope  catalog.Scope
	name   string
	telugu string
	price  int64
}

// Starter price list. Existing items with the same name are overwritten.
var starters = []starter{
	{catalog.Scope{MealType: enum.MealBreakfast}, "Idli", "ఇడ్లీ", 10},
	{catalog.Scope{MealType: enum.MealBreakfast}, "Dosa", "దోశ", 40},
	{catalog.Scope{MealType: enum.MealBreakfast}, "Pesarattu", "పెసరట్టు", 50},
	{catalog.Scope{MealType: enum.MealBreakfast}, "Upma", "ఉప్మా", 40},
	{catalog.Scope{MealType: enum.MealLunch, Subcategory: enum.SubcategoryDaal}, "Tomato Pappu", "టమాటా పప్పు", 60},
	{catalog.Scope{MealType: enum.MealLunch, Subcategory: enum.SubcategoryCurry}, "Bendakaya Fry", "బెండకాయ వేపుడు", 70},
	{catalog.Scope{MealType: enum.MealLunch, Subcategory: enum.SubcategoryPickle}, "Avakaya", "ఆవకాయ", 30},
	{catalog.Scope{MealType: enum.MealLunch, Subcategory: enum.SubcategorySambar}, "Sambar", "సాంబార్", 40},
	{catalog.Scope{MealType: enum.MealLunch, Subcategory: enum.SubcategoryOthers}, "Rice", "అన్నం", 30},
	{catalog.Scope{MealType: enum.MealDinner, Subcategory: enum.SubcategoryCurry}, "Chapati", "చపాతీ", 15},
	{catalog.Scope{MealType: enum.MealDinner, Subcategory: enum.SubcategoryDaal}, "Palakura Pappu", "పాలకూర పప్పు", 60},
	{catalog.Scope{MealType: enum.MealBakery}, "Banana Bread", "", 120},
}

func main() {
	// CLI flags
	password := flag.String("password", "", "Staff password to hash for STAFF_PASSWORD_HASH")
	skipCatalog := flag.Bool("skip-catalog", false, "Only print the password hash")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Fall back to environment variables
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}

	if *password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("hash password failed", zap.Error(err))
		}
		fmt.Printf("STAFF_USERNAME=%s\nSTAFF_PASSWORD_HASH=%s\n", cfg.StaffUsername, hashed)
	} else {
		log.Warn("no -password given, skipping staff password hash")
	}

	if *skipCatalog {
		return
	}

	ctx := context.Background()
	db, closeDB, err := store.Open(ctx, store.Options{
		Backend:      cfg.StoreBackend,
		SnapshotPath: cfg.StoreSnapshotPath,
		DatabaseURL:  cfg.DatabaseURL,
	}, log)
	if err != nil {
		log.Fatal("open store failed", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeDB()

	cat := catalog.New(db)
	for _, s := range starters {
		item := model.CatalogItem{Name: s.name, LocalizedName: s.telugu, Price: decimal.NewFromInt(s.price)}
		if err := cat.UpsertItem(ctx, s.scope, item); err != nil {
			log.Error("seed catalog item failed", zap.String("item", s.name), zap.Error(err))
			return
		}
	}
	log.Info("seed completed successfully",
		zap.String("store", cfg.StoreBackend),
		zap.Int("catalog_items", len(starters)))
}
