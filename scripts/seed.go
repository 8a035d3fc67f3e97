package main

import (
	"context"
	"fmt"
	"log"

	"fleettrack/config"
	"fleettrack/graph"
	"fleettrack/models"
	"fleettrack/schedule"
	"fleettrack/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.Load()
	cfg.Validate()

	ctx := context.Background()

	// Initialize the Graph gateway and the store
	tokens := graph.NewDeviceCodeTokenProvider(cfg.Graph)
	client := graph.NewClient(cfg.Graph, tokens, nil)
	st := store.New(client, schedule.PolicyFromConfig(cfg.Schedule), store.NoSession{}, cfg.Master)

	if err := client.Authenticate(ctx); err != nil {
		log.Fatalf("Failed to authenticate: %v", err)
	}
	if err := client.ResolveContainers(ctx); err != nil {
		log.Fatalf("Failed to resolve lists: %v", err)
	}

	log.Println("🌱 Starting remote list seeding...")

	if err := seedPlants(ctx, st); err != nil {
		log.Fatalf("Failed to seed plants: %v", err)
	}
	if err := seedTrucks(ctx, st); err != nil {
		log.Fatalf("Failed to seed trucks: %v", err)
	}
	if err := seedDrivers(ctx, st); err != nil {
		log.Fatalf("Failed to seed drivers: %v", err)
	}
	if err := seedUsers(ctx, st); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Println("✅ Seeding completed successfully!")
}

func seedPlants(ctx context.Context, st *store.Store) error {
	plants := []models.Plant{
		{PlantID: "P1", Name: "Unidade Leste"},
		{PlantID: "P2", Name: "Unidade Oeste"},
		{PlantID: "P3", Name: "Unidade Norte"},
	}

	for _, plant := range plants {
		if _, err := st.CreatePlant(ctx, plant); err != nil {
			return fmt.Errorf("failed to create plant %s: %w", plant.PlantID, err)
		}
		log.Printf("  ✓ Created plant: %s", plant.Name)
	}
	return nil
}

func seedTrucks(ctx context.Context, st *store.Store) error {
	trucks := []models.Truck{
		{Plate: "ABC-1234", PlantID: "P1"},
		{Plate: "DEF-5678", PlantID: "P1"},
		{Plate: "GHI-9012", PlantID: "P2"},
	}

	for _, truck := range trucks {
		if _, err := st.CreateTruck(ctx, truck); err != nil {
			return fmt.Errorf("failed to create truck %s: %w", truck.Plate, err)
		}
		log.Printf("  ✓ Created truck: %s", truck.Plate)
	}
	return nil
}

func seedDrivers(ctx context.Context, st *store.Store) error {
	drivers := []models.Driver{
		{Name: "João Silva", PlantID: "P1"},
		{Name: "Carlos Pereira", PlantID: "P1"},
		{Name: "Marcos Souza", PlantID: "P2"},
	}

	for _, driver := range drivers {
		if _, err := st.CreateDriver(ctx, driver); err != nil {
			return fmt.Errorf("failed to create driver %s: %w", driver.Name, err)
		}
		log.Printf("  ✓ Created driver: %s", driver.Name)
	}
	return nil
}

func seedUsers(ctx context.Context, st *store.Store) error {
	users := []struct {
		User     models.User
		Password string
	}{
		{
			User:     models.User{Login: "admin", Name: "Administrator", AccessLevel: models.RoleAdmin},
			Password: "changeme1",
		},
		{
			User:     models.User{Login: "op_leste", Name: "Operador Leste", AccessLevel: models.RoleOperator, PlantID: "P1"},
			Password: "changeme1",
		},
		{
			User:     models.User{Login: "op_oeste", Name: "Operador Oeste", AccessLevel: models.RoleOperator, PlantID: "P2"},
			Password: "changeme1",
		},
	}

	for _, userData := range users {
		if _, err := st.CreateUser(ctx, userData.User, userData.Password); err != nil {
			return fmt.Errorf("failed to create user %s: %w", userData.User.Login, err)
		}
		log.Printf("  ✓ Created user: %s (role: %s)", userData.User.Login, userData.User.AccessLevel)
	}
	return nil
}
