package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// Imports the product catalog from an xlsx sheet. Expected columns:
// name, slug, description, ingredients, price, category, size_ml,
// stock, image_url, featured. Without a file argument a small starter
// catalog is seeded instead.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	var products []model.Product
	if len(os.Args) >= 2 {
		filePath := os.Args[1]
		fmt.Printf("Reading catalog from %s\n", filePath)
		products, err = readProductsFromXLSX(filePath)
		if err != nil {
			log.Fatal("Failed to read catalog:", err)
		}
	} else {
		fmt.Println("No catalog file given, seeding the starter catalog")
		products = starterCatalog()
	}

	fmt.Printf("Products to import: %d\n", len(products))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	imported := 0
	skipped := 0
	for i := range products {
		var count int64
		if err := db.GetDB().Model(&model.Product{}).Where("slug = ?", products[i].Slug).Count(&count).Error; err != nil {
			log.Fatal("Failed to check existing product:", err)
		}
		if count > 0 {
			skipped++
			continue
		}
		if err := db.GetDB().Create(&products[i]).Error; err != nil {
			log.Fatal("Failed to insert product:", err)
		}
		imported++
	}

	fmt.Printf("Done. Imported %d products, skipped %d existing.\n", imported, skipped)
}

func readProductsFromXLSX(filePath string) ([]model.Product, error) {
	file, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no data rows", sheet)
	}

	var products []model.Product
	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: expected at least 6 columns, got %d", i+2, len(row))
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(cell(row, 4)), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad price %q", i+2, cell(row, 4))
		}
		sizeML, _ := strconv.Atoi(strings.TrimSpace(cell(row, 6)))
		stock, _ := strconv.Atoi(strings.TrimSpace(cell(row, 7)))

		products = append(products, model.Product{
			Name:          strings.TrimSpace(cell(row, 0)),
			Slug:          strings.TrimSpace(cell(row, 1)),
			Description:   strings.TrimSpace(cell(row, 2)),
			Ingredients:   strings.TrimSpace(cell(row, 3)),
			Price:         price,
			Category:      model.ProductCategory(strings.TrimSpace(cell(row, 5))),
			SizeML:        sizeML,
			StockQuantity: stock,
			ImageURL:      strings.TrimSpace(cell(row, 8)),
			Featured:      strings.EqualFold(strings.TrimSpace(cell(row, 9)), "true"),
			Active:        true,
		})
	}
	return products, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func starterCatalog() []model.Product {
	return []model.Product{
		{
			Name:          "Calendula Cream Cleanser",
			Slug:          "calendula-cream-cleanser",
			Description:   "A gentle cream cleanser with calendula extract for dry and sensitive skin.",
			Ingredients:   "Water, Calendula Officinalis Flower Extract, Glycerin, Cetearyl Alcohol",
			Price:         24.00,
			Category:      model.CategoryCleanser,
			SizeML:        150,
			StockQuantity: 120,
			Featured:      false,
			Active:        true,
		},
		{
			Name:          "Blue Tansy Night Serum",
			Slug:          "blue-tansy-night-serum",
			Description:   "An overnight serum with blue tansy oil to calm and restore the skin barrier.",
			Ingredients:   "Squalane, Tanacetum Annuum Flower Oil, Rosa Canina Fruit Oil",
			Price:         42.00,
			Category:      model.CategorySerum,
			SizeML:        30,
			StockQuantity: 80,
			Featured:      true,
			Active:        true,
		},
		{
			Name:          "Oat Milk Moisturizer",
			Slug:          "oat-milk-moisturizer",
			Description:   "A lightweight daily moisturizer with colloidal oat for all skin types.",
			Ingredients:   "Water, Avena Sativa Kernel Flour, Shea Butter, Niacinamide",
			Price:         32.00,
			Category:      model.CategoryMoisturizer,
			SizeML:        50,
			StockQuantity: 150,
			Featured:      true,
			Active:        true,
		},
		{
			Name:          "Green Clay Renewal Mask",
			Slug:          "green-clay-renewal-mask",
			Description:   "A weekly clay mask with French green clay and willow bark.",
			Ingredients:   "Montmorillonite, Kaolin, Salix Alba Bark Extract",
			Price:         28.00,
			Category:      model.CategoryMask,
			SizeML:        75,
			StockQuantity: 60,
			Featured:      false,
			Active:        true,
		},
		{
			Name:          "Juniper Body Oil",
			Slug:          "juniper-body-oil",
			Description:   "A fast-absorbing body oil with juniper berry and jojoba.",
			Ingredients:   "Simmondsia Chinensis Seed Oil, Juniperus Communis Fruit Oil",
			Price:         36.00,
			Category:      model.CategoryBody,
			SizeML:        100,
			StockQuantity: 90,
			Featured:      false,
			Active:        true,
		},
	}
}
