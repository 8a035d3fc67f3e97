package store

import (
	"context"
	"strings"

	"fleettrack/auth"
	"fleettrack/graph"
	"fleettrack/models"
	"fleettrack/normalize"
)

// Admin CRUD. All five collections follow the same pattern: validate
// locally, write remote, then append to or remove from the local slice only
// on success.

// CreatePlant adds a plant. PlantID must be unique.
func (s *Store) CreatePlant(ctx context.Context, plant models.Plant) (models.Plant, error) {
	if strings.TrimSpace(plant.PlantID) == "" || strings.TrimSpace(plant.Name) == "" {
		return models.Plant{}, &ValidationError{Field: "plant", Reason: "plant id and name are required"}
	}
	s.mu.RLock()
	for _, p := range s.plants {
		if p.PlantID == plant.PlantID {
			s.mu.RUnlock()
			return models.Plant{}, &ValidationError{Field: "plant_id", Reason: "plant id already exists"}
		}
	}
	s.mu.RUnlock()

	id, err := s.gateway.Create(ctx, graph.CollectionPlants, normalize.PlantFields(plant))
	if err != nil {
		return models.Plant{}, err
	}
	plant.ID = id

	s.mu.Lock()
	s.plants = append(s.plants, plant)
	s.mu.Unlock()
	s.recordAudit("PLANT_CREATE", "plant "+plant.PlantID)
	return plant, nil
}

// DeletePlant removes a plant record. Loads referencing it degrade to
// "unknown" in display layers; they are not cascaded.
func (s *Store) DeletePlant(ctx context.Context, id string) error {
	if err := s.gateway.Delete(ctx, graph.CollectionPlants, id); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.plants {
		if s.plants[i].ID == id {
			s.plants = append(s.plants[:i], s.plants[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.recordAudit("PLANT_DELETE", "plant "+id)
	return nil
}

// CreateTruck adds a truck. The plate must not already be registered.
func (s *Store) CreateTruck(ctx context.Context, truck models.Truck) (models.Truck, error) {
	truck.Plate = strings.ToUpper(strings.TrimSpace(truck.Plate))
	if truck.Plate == "" {
		return models.Truck{}, &ValidationError{Field: "plate", Reason: "plate is required"}
	}
	if _, exists := s.TruckByPlate(truck.Plate); exists {
		return models.Truck{}, &ValidationError{Field: "plate", Reason: "plate already registered"}
	}
	if truck.TruckID == "" {
		truck.TruckID = truck.Plate
	}

	id, err := s.gateway.Create(ctx, graph.CollectionTrucks, normalize.TruckFields(truck))
	if err != nil {
		return models.Truck{}, err
	}
	truck.ID = id

	s.mu.Lock()
	s.trucks = append(s.trucks, truck)
	s.mu.Unlock()
	s.recordAudit("TRUCK_CREATE", "truck "+truck.Plate)
	return truck, nil
}

// DeleteTruck removes a truck record.
func (s *Store) DeleteTruck(ctx context.Context, id string) error {
	if err := s.gateway.Delete(ctx, graph.CollectionTrucks, id); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.trucks {
		if s.trucks[i].ID == id {
			s.trucks = append(s.trucks[:i], s.trucks[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.recordAudit("TRUCK_DELETE", "truck "+id)
	return nil
}

// CreateDriver adds a driver. The name must not already be registered.
func (s *Store) CreateDriver(ctx context.Context, driver models.Driver) (models.Driver, error) {
	driver.Name = strings.TrimSpace(driver.Name)
	if driver.Name == "" {
		return models.Driver{}, &ValidationError{Field: "name", Reason: "driver name is required"}
	}
	if _, exists := s.DriverByName(driver.Name); exists {
		return models.Driver{}, &ValidationError{Field: "name", Reason: "driver already registered"}
	}
	if driver.DriverID == "" {
		driver.DriverID = driver.Name
	}

	id, err := s.gateway.Create(ctx, graph.CollectionDrivers, normalize.DriverFields(driver))
	if err != nil {
		return models.Driver{}, err
	}
	driver.ID = id

	s.mu.Lock()
	s.drivers = append(s.drivers, driver)
	s.mu.Unlock()
	s.recordAudit("DRIVER_CREATE", "driver "+driver.Name)
	return driver, nil
}

// DeleteDriver removes a driver record.
func (s *Store) DeleteDriver(ctx context.Context, id string) error {
	if err := s.gateway.Delete(ctx, graph.CollectionDrivers, id); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.drivers {
		if s.drivers[i].ID == id {
			s.drivers = append(s.drivers[:i], s.drivers[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.recordAudit("DRIVER_DELETE", "driver "+id)
	return nil
}

// CreateUser adds an application user. The password is hashed before the
// remote write; plaintext never leaves this method.
func (s *Store) CreateUser(ctx context.Context, user models.User, password string) (models.User, error) {
	user.Login = strings.TrimSpace(user.Login)
	if user.Login == "" {
		return models.User{}, &ValidationError{Field: "login", Reason: "login is required"}
	}
	s.mu.RLock()
	for _, u := range s.users {
		if strings.EqualFold(u.Login, user.Login) {
			s.mu.RUnlock()
			return models.User{}, &ValidationError{Field: "login", Reason: "login already taken"}
		}
	}
	s.mu.RUnlock()
	if user.AccessLevel == models.RoleOperator && user.PlantID == "" {
		return models.User{}, &ValidationError{Field: "plant_id", Reason: "operators must be scoped to a plant"}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, &ValidationError{Field: "password", Reason: err.Error()}
	}
	user.Password = hash

	id, err := s.gateway.Create(ctx, graph.CollectionUsers, normalize.UserFields(user))
	if err != nil {
		return models.User{}, err
	}
	user.ID = id

	s.mu.Lock()
	s.users = append(s.users, user)
	s.mu.Unlock()
	s.recordAudit("USER_CREATE", "user "+user.Login)
	return user, nil
}

// DeleteUser removes an application user.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := s.gateway.Delete(ctx, graph.CollectionUsers, id); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.recordAudit("USER_DELETE", "user "+id)
	return nil
}

// CreateJustification adds a closing-reason lookup entry.
func (s *Store) CreateJustification(ctx context.Context, j models.Justification) (models.Justification, error) {
	if strings.TrimSpace(j.Text) == "" {
		return models.Justification{}, &ValidationError{Field: "text", Reason: "justification text is required"}
	}

	id, err := s.gateway.Create(ctx, graph.CollectionJustifications, normalize.JustificationFields(j))
	if err != nil {
		return models.Justification{}, err
	}
	j.ID = id

	s.mu.Lock()
	s.justifications = append(s.justifications, j)
	s.mu.Unlock()
	return j, nil
}

// DeleteJustification removes a closing-reason lookup entry.
func (s *Store) DeleteJustification(ctx context.Context, id string) error {
	if err := s.gateway.Delete(ctx, graph.CollectionJustifications, id); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.justifications {
		if s.justifications[i].ID == id {
			s.justifications = append(s.justifications[:i], s.justifications[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}
