package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/plateful/storefront/internal/apiclient"
	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/model"
)

// seed populates a running order service with demo branches, dishes,
// and branch admin accounts through the owner admin API.
func main() {
	// CLI flags
	apiURL := flag.String("api", "", "Order service base URL")
	email := flag.String("email", "", "Owner email address")
	password := flag.String("password", "", "Owner password")
	flag.Parse()

	// Fall back to environment variables
	if *apiURL == "" {
		*apiURL = os.Getenv("API_BASE_URL")
	}
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}

	// Fall back to defaults
	if *apiURL == "" {
		*apiURL = "http://localhost:8081"
	}
	if *email == "" {
		*email = "owner@plateful.dev"
	}
	if *password == "" {
		*password = "password123"
	}

	ctx := context.Background()

	login, err := apiclient.New(*apiURL).Login(ctx, *email, *password)
	if err != nil {
		log.Fatalf("Owner login failed: %v", err)
	}
	log.Printf("Logged in as %s", login.User.Email)

	client := apiclient.New(*apiURL, apiclient.WithToken(login.AccessToken))

	branches := []model.Branch{
		{Name: "Central Kitchen", Address: "Jl. Merdeka 1", Phone: "021-555-0101", Open: true},
		{Name: "Harbor Side", Address: "Jl. Pelabuhan 42", Phone: "021-555-0102", Open: true},
	}

	menus := [][]model.Dish{
		{
			{Name: "Grilled Chicken Rice", Description: "Charcoal grilled, sambal on the side", PriceCents: 120000, Available: true},
			{Name: "Beef Rendang", Description: "Slow cooked for eight hours", PriceCents: 150000, Available: true},
			{Name: "Iced Sweet Tea", PriceCents: 25000, Available: true},
		},
		{
			{Name: "Fried Calamari", Description: "Daily catch", PriceCents: 95000, Available: true},
			{Name: "Fish Soup", PriceCents: 85000, Available: true},
			{Name: "Coconut Water", PriceCents: 30000, Available: true},
		},
	}

	for i, b := range branches {
		branch, err := client.CreateBranch(ctx, b)
		if err != nil {
			log.Fatalf("Create branch %q: %v", b.Name, err)
		}
		log.Printf("Branch %s (%s)", branch.Name, branch.ID)

		for _, d := range menus[i] {
			d.BranchID = branch.ID
			dish, err := client.CreateDish(ctx, d)
			if err != nil {
				log.Fatalf("Create dish %q: %v", d.Name, err)
			}
			log.Printf("  Dish %s (%s)", dish.Name, dish.ID)
		}

		admin, err := client.CreateUser(ctx, model.User{
			BranchID: branch.ID,
			FullName: branch.Name + " Admin",
			Email:    adminEmail(i),
			Role:     enum.RoleBranchAdmin,
		}, "admin123")
		if err != nil {
			log.Fatalf("Create branch admin: %v", err)
		}
		log.Printf("  Admin %s", admin.Email)
	}

	log.Println("Seed complete")
}

func adminEmail(i int) string {
	return []string{"central@plateful.dev", "harbor@plateful.dev"}[i]
}
