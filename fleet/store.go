package fleet

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seed []byte

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Store holds a Dataset in memory. Safe for concurrent use; every
// operation runs under the store lock.
type Store struct {
	mu   sync.RWMutex
	data Dataset
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load parses a YAML dataset.
func Load(data []byte) (*Store, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse fleet dataset: %w", err)
	}
	return &Store{data: ds}, nil
}

// Seed returns a store loaded with the embedded demo dataset.
func Seed() (*Store, error) {
	return Load(seed)
}

// Snapshot returns a deep copy of the current data.
func (s *Store) Snapshot() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds := Dataset{
		Stops:       slices.Clone(s.data.Stops),
		Paths:       slices.Clone(s.data.Paths),
		Routes:      slices.Clone(s.data.Routes),
		Vehicles:    slices.Clone(s.data.Vehicles),
		Drivers:     slices.Clone(s.data.Drivers),
		Trips:       slices.Clone(s.data.Trips),
		Deployments: slices.Clone(s.data.Deployments),
	}
	for i := range ds.Paths {
		ds.Paths[i].Stops = slices.Clone(ds.Paths[i].Stops)
	}
	return ds
}

// Marshal encodes the current data as YAML.
func (s *Store) Marshal() ([]byte, error) {
	ds := s.Snapshot()
	return yaml.Marshal(&ds)
}

func (s *Store) read(fn func(d *Dataset) string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.data)
}

func (s *Store) write(fn func(d *Dataset) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

func find[T any](items []T, match func(*T) bool) *T {
	for i := range items {
		if match(&items[i]) {
			return &items[i]
		}
	}
	return nil
}

func nextID[T any](items []T, id func(T) int) int {
	highest := 0
	for _, item := range items {
		highest = max(highest, id(item))
	}
	return highest + 1
}

func (d *Dataset) stop(id int) *Stop {
	return find(d.Stops, func(s *Stop) bool { return s.ID == id })
}

func (d *Dataset) stopByName(name string) *Stop {
	return find(d.Stops, func(s *Stop) bool { return s.Name == name })
}

func (d *Dataset) path(id int) *Path {
	return find(d.Paths, func(p *Path) bool { return p.ID == id })
}

func (d *Dataset) pathByName(name string) *Path {
	return find(d.Paths, func(p *Path) bool { return p.Name == name })
}

func (d *Dataset) route(id int) *Route {
	return find(d.Routes, func(r *Route) bool { return r.ID == id })
}

func (d *Dataset) routeByName(name string) *Route {
	return find(d.Routes, func(r *Route) bool { return r.DisplayName == name })
}

func (d *Dataset) vehicle(id int) *Vehicle {
	return find(d.Vehicles, func(v *Vehicle) bool { return v.ID == id })
}

func (d *Dataset) vehicleByPlate(plate string) *Vehicle {
	return find(d.Vehicles, func(v *Vehicle) bool { return v.LicensePlate == plate })
}

func (d *Dataset) driver(id int) *Driver {
	return find(d.Drivers, func(dr *Driver) bool { return dr.ID == id })
}

func (d *Dataset) driverByName(name string) *Driver {
	return find(d.Drivers, func(dr *Driver) bool { return dr.Name == name })
}

func (d *Dataset) trip(id int) *Trip {
	return find(d.Trips, func(t *Trip) bool { return t.ID == id })
}

func (d *Dataset) tripByName(name string) *Trip {
	return find(d.Trips, func(t *Trip) bool { return t.DisplayName == name })
}

func (d *Dataset) tripsOn(routeID int) []Trip {
	var out []Trip
	for _, t := range d.Trips {
		if t.RouteID == routeID {
			out = append(out, t)
		}
	}
	return out
}

func (d *Dataset) deploymentsFor(tripID int) []Deployment {
	var out []Deployment
	for _, dep := range d.Deployments {
		if dep.TripID == tripID {
			out = append(out, dep)
		}
	}
	return out
}

func (d *Dataset) deleteDeployment(id int) {
	d.Deployments = slices.DeleteFunc(d.Deployments, func(dep Deployment) bool { return dep.ID == id })
}
