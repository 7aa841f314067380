// Package fleet is a reference operation catalog for a corporate shuttle
// service: stops, paths, routes, vehicles, drivers, daily trips and the
// deployments that assign a vehicle and driver to a trip.
//
// The data lives in memory and is seeded from YAML. Register exposes it to
// the assistant as operations; Checker reports the downstream effects the
// consequence stage asks about.
package fleet

// RouteStatus is active or deactivated.
type RouteStatus string

const (
	RouteActive      RouteStatus = "active"
	RouteDeactivated RouteStatus = "deactivated"
)

// ParseRouteStatus maps anything other than "active" to deactivated.
func ParseRouteStatus(s string) RouteStatus {
	if s == string(RouteActive) {
		return RouteActive
	}
	return RouteDeactivated
}

type Stop struct {
	ID        int     `yaml:"id"`
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// Path is an ordered list of stops.
type Path struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Stops []int  `yaml:"stops"`
}

// Route runs a path at a shift time.
type Route struct {
	ID                int         `yaml:"id"`
	PathID            int         `yaml:"path"`
	DisplayName       string      `yaml:"name"`
	ShiftTime         string      `yaml:"shift_time"`
	Direction         string      `yaml:"direction"`
	StartPoint        string      `yaml:"start_point,omitempty"`
	EndPoint          string      `yaml:"end_point,omitempty"`
	Status            RouteStatus `yaml:"status"`
	Capacity          int         `yaml:"capacity"`
	AllocatedWaitlist int         `yaml:"allocated_waitlist,omitempty"`
}

type Vehicle struct {
	ID           int    `yaml:"id"`
	LicensePlate string `yaml:"license_plate"`
	Type         string `yaml:"type"`
	Capacity     int    `yaml:"capacity"`
	Status       string `yaml:"status"`
}

type Driver struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

// Trip is one day's run of a route.
type Trip struct {
	ID          int     `yaml:"id"`
	RouteID     int     `yaml:"route"`
	DisplayName string  `yaml:"name"`
	Booking     float64 `yaml:"booking"`
	LiveStatus  string  `yaml:"live_status"`
}

// Deployment assigns a vehicle and driver to a trip.
type Deployment struct {
	ID        int `yaml:"id"`
	TripID    int `yaml:"trip"`
	VehicleID int `yaml:"vehicle"`
	DriverID  int `yaml:"driver"`
}

// Dataset is the serialized form of a Store.
type Dataset struct {
	Stops       []Stop       `yaml:"stops"`
	Paths       []Path       `yaml:"paths"`
	Routes      []Route      `yaml:"routes"`
	Vehicles    []Vehicle    `yaml:"vehicles"`
	Drivers     []Driver     `yaml:"drivers"`
	Trips       []Trip       `yaml:"trips"`
	Deployments []Deployment `yaml:"deployments"`
}
