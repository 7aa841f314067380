package fleet

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/tools"
)

// Page contexts the operations are offered in.
const (
	PageBusDashboard = "busDashboard"
	PageVehicles     = "vehicles"
	PageDrivers      = "drivers"
	PageStopsPaths   = "stops_paths"
	PageRoutes       = "routes"
)

var (
	busPages    = []string{PageBusDashboard, PageVehicles, PageDrivers}
	stopPages   = []string{PageStopsPaths}
	routesPages = []string{PageRoutes}
)

type operation struct {
	tool    protocol.Tool
	handler tools.Handler
}

// Register adds every fleet operation to reg, backed by s.
func Register(reg *tools.Registry, s *Store) error {
	for _, op := range operations(s) {
		if err := reg.Register(op.tool, op.handler); err != nil {
			return fmt.Errorf("register %s: %w", op.tool.Name, err)
		}
	}
	return nil
}

// Tools lists the descriptors Register adds.
func Tools() []protocol.Tool {
	ops := operations(NewStore())
	out := make([]protocol.Tool, len(ops))
	for i, op := range ops {
		out[i] = op.tool
	}
	return out
}

func describe(name, description string, pages []string, params map[string]string, required ...string) protocol.Tool {
	return protocol.Tool{
		Name:        name,
		Description: description,
		Parameters:  protocol.Schema(params, required...),
		Contexts:    pages,
	}
}

// handle decodes the operation arguments into A. Malformed arguments are
// reported to the caller as a failed result.
func handle[A any](fn func(A) (string, error)) tools.Handler {
	return func(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
		if err := ctx.Err(); err != nil {
			return tools.Result{}, err
		}

		var args A
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &args); err != nil {
				return tools.Result{Content: "invalid arguments: " + err.Error(), IsError: true}, nil
			}
		}

		content, err := fn(args)
		if err != nil {
			return tools.Result{Content: err.Error(), IsError: true}, nil
		}
		return tools.Result{Content: content}, nil
	}
}

type none struct{}

func pct(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func operations(s *Store) []operation {
	return []operation{
		// trips, vehicles and drivers
		{describe("get_all_trips", "Returns a list of all display names for today's trips.", busPages, nil),
			handle(s.allTrips)},
		{describe("get_trip_status", "Gets the status, booking percentage, and deployment details for a specific trip by its display name.", busPages,
			map[string]string{"trip_display_name": "string"}, "trip_display_name"),
			handle(s.tripStatus)},
		{describe("get_trip_data", "Get the status and details of a specific trip by display name.", busPages,
			map[string]string{"trip_display_name": "string"}, "trip_display_name"),
			handle(s.tripData)},
		{describe("create_new_trip", "Creates a new daily trip for a given route with a specific display name and status.", busPages,
			map[string]string{"route_display_name": "string", "trip_display_name": "string", "live_status": "string"},
			"route_display_name", "trip_display_name"),
			handle(s.createTrip)},
		{describe("update_trip", "Update an existing trip's display name, booking status, or live status. Identify the trip by trip_display_name or trip_id.", busPages,
			map[string]string{"trip_id": "integer", "trip_display_name": "string", "display_name": "string",
				"booking_status_percentage": "number", "live_status": "string"}),
			handle(s.updateTrip)},
		{describe("delete_trip", "Delete a trip by trip display name. Its deployments are removed first.", busPages,
			map[string]string{"trip_display_name": "string"}, "trip_display_name"),
			handle(s.deleteTrip)},
		{describe("assign_vehicle_and_driver_to_trip", "Assign a vehicle and driver to a trip.", busPages,
			map[string]string{"trip_display_name": "string", "vehicle_license_plate": "string", "driver_name": "string"},
			"trip_display_name", "vehicle_license_plate", "driver_name"),
			handle(s.assign)},
		{describe("remove_vehicle_from_trip", "Removes the assigned vehicle and driver from a specific trip.", busPages,
			map[string]string{"trip_display_name": "string"}, "trip_display_name"),
			handle(s.removeVehicle)},
		{describe("delete_deployment", "Delete a deployment to remove the vehicle and driver assignment from a trip. Identify it by deployment_id or by trip_display_name.", busPages,
			map[string]string{"deployment_id": "integer", "trip_display_name": "string"}),
			handle(s.deleteDeployment)},
		{describe("list_all_vehicles", "List all vehicles in the system with their license plates, types, capacity, and status.", busPages, nil),
			handle(s.allVehicles)},
		{describe("get_unassigned_vehicles", "Returns a list of license plates for vehicles that are not currently assigned to any trip.", busPages, nil),
			handle(s.unassignedVehicles)},
		{describe("list_all_drivers", "List all drivers in the system with their names, phone numbers, and IDs.", busPages, nil),
			handle(s.allDrivers)},

		// stops and paths
		{describe("list_all_stops", "List all stops in the system with their IDs and coordinates.", stopPages, nil),
			handle(s.allStops)},
		{describe("get_stop_details", "Get details about a specific stop by name including ID and coordinates.", stopPages,
			map[string]string{"stop_name": "string"}, "stop_name"),
			handle(s.stopDetails)},
		{describe("create_new_stop", "Creates one or more new stops. Provide stop_name, latitude and longitude, or a list of stops.", stopPages,
			map[string]string{"stop_name": "string", "latitude": "number", "longitude": "number", "stops": "array"}),
			handle(s.createStops)},
		{describe("update_stop", "Update an existing stop's name, latitude, or longitude.", stopPages,
			map[string]string{"stop_id": "integer", "name": "string", "latitude": "number", "longitude": "number"}, "stop_id"),
			handle(s.updateStop)},
		{describe("list_all_paths", "List all paths in the system with their IDs and stop count.", stopPages, nil),
			handle(s.allPaths)},
		{describe("list_stops_for_path", "Returns an ordered list of stop names for a given path name.", stopPages,
			map[string]string{"path_name": "string"}, "path_name"),
			handle(s.pathStops)},
		{describe("create_new_path", "Creates a new path using an ordered list of existing stop names.", stopPages,
			map[string]string{"path_name": "string", "stop_names": "array"}, "path_name", "stop_names"),
			handle(s.createPath)},

		// routes
		{describe("list_all_routes", "List all routes with their paths, status, and capacity. Optionally filter by status.", routesPages,
			map[string]string{"status": "string"}),
			handle(s.allRoutes)},
		{describe("list_routes_using_path", "List all routes that use a specific path.", routesPages,
			map[string]string{"path_name": "string"}, "path_name"),
			handle(s.routesUsing)},
		{describe("create_new_route", "Create a new route on an existing path with shift time (HH:MM), direction, and capacity.", routesPages,
			map[string]string{"route_name": "string", "path_name": "string", "shift_time": "string",
				"direction": "string", "capacity": "integer", "status": "string"},
			"route_name", "path_name", "shift_time", "direction", "capacity"),
			handle(s.createRoute)},
		{describe("update_route", "Update an existing route's display name, capacity, or status. Identify the route by route_display_name or route_id.", routesPages,
			map[string]string{"route_id": "integer", "route_display_name": "string", "new_display_name": "string",
				"capacity": "integer", "status": "string"}),
			handle(s.updateRoute)},
		{describe("update_route_status", "Activate or deactivate a route.", routesPages,
			map[string]string{"route_display_name": "string", "status": "string"}, "route_display_name", "status"),
			handle(s.updateRouteStatus)},
	}
}

// Trips

func (s *Store) allTrips(none) (string, error) {
	return s.read(func(d *Dataset) string {
		if len(d.Trips) == 0 {
			return "No trips found."
		}
		names := make([]string, len(d.Trips))
		for i, t := range d.Trips {
			names[i] = t.DisplayName
		}
		return "Today's trips: " + strings.Join(names, ", ")
	}), nil
}

type tripArgs struct {
	TripDisplayName string `json:"trip_display_name"`
}

func (s *Store) tripStatus(a tripArgs) (string, error) {
	return s.read(func(d *Dataset) string {
		t := d.tripByName(a.TripDisplayName)
		if t == nil {
			return fmt.Sprintf("Trip '%s' not found.", a.TripDisplayName)
		}

		info := "No vehicle or driver assigned."
		if deps := d.deploymentsFor(t.ID); len(deps) > 0 {
			info = fmt.Sprintf("Assigned vehicle: %s, Driver: %s.", d.plate(deps[0].VehicleID), d.driverName(deps[0].DriverID))
		}
		return fmt.Sprintf("Status of trip '%s':\n- Live Status: %s\n- Booking: %s%%\n- %s",
			t.DisplayName, t.LiveStatus, pct(t.Booking), info)
	}), nil
}

func (s *Store) tripData(a tripArgs) (string, error) {
	return s.read(func(d *Dataset) string {
		t := d.tripByName(a.TripDisplayName)
		if t == nil {
			return fmt.Sprintf("Trip '%s' not found.", a.TripDisplayName)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Trip: %s\nTrip ID: %d\n", t.DisplayName, t.ID)
		if r := d.route(t.RouteID); r != nil {
			fmt.Fprintf(&b, "Route: %s\n", r.DisplayName)
		}
		fmt.Fprintf(&b, "Booking Status: %s%%\nLive Status: %s\n", pct(t.Booking), t.LiveStatus)

		deps := d.deploymentsFor(t.ID)
		if len(deps) == 0 {
			b.WriteString("\nNo vehicle/driver assigned yet.\n")
			return b.String()
		}
		b.WriteString("\nAssignments:\n")
		for _, dep := range deps {
			fmt.Fprintf(&b, "- Vehicle: %s\n- Driver: %s\n", d.plate(dep.VehicleID), d.driverName(dep.DriverID))
		}
		return b.String()
	}), nil
}

type createTripArgs struct {
	RouteDisplayName string `json:"route_display_name"`
	TripDisplayName  string `json:"trip_display_name"`
	LiveStatus       string `json:"live_status"`
}

func (s *Store) createTrip(a createTripArgs) (string, error) {
	if a.LiveStatus == "" {
		a.LiveStatus = "scheduled"
	}
	return s.write(func(d *Dataset) (string, error) {
		r := d.routeByName(a.RouteDisplayName)
		if r == nil {
			return fmt.Sprintf("Route '%s' not found.", a.RouteDisplayName), nil
		}
		if d.tripByName(a.TripDisplayName) != nil {
			return fmt.Sprintf("Trip '%s' already exists.", a.TripDisplayName), nil
		}

		t := Trip{
			ID:          nextID(d.Trips, func(t Trip) int { return t.ID }),
			RouteID:     r.ID,
			DisplayName: a.TripDisplayName,
			LiveStatus:  a.LiveStatus,
		}
		d.Trips = append(d.Trips, t)
		return fmt.Sprintf("Created trip '%s' for route '%s' with ID %d.", t.DisplayName, r.DisplayName, t.ID), nil
	})
}

type updateTripArgs struct {
	TripID          int      `json:"trip_id"`
	TripDisplayName string   `json:"trip_display_name"`
	DisplayName     *string  `json:"display_name"`
	Booking         *float64 `json:"booking_status_percentage"`
	LiveStatus      *string  `json:"live_status"`
}

func (s *Store) updateTrip(a updateTripArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		var t *Trip
		switch {
		case a.TripDisplayName != "":
			if t = d.tripByName(a.TripDisplayName); t == nil {
				return fmt.Sprintf("Error: Trip '%s' not found.", a.TripDisplayName), nil
			}
		case a.TripID != 0:
			if t = d.trip(a.TripID); t == nil {
				return fmt.Sprintf("Error: Trip with ID %d not found.", a.TripID), nil
			}
		default:
			return "", fmt.Errorf("trip_display_name or trip_id is required")
		}

		if a.DisplayName != nil {
			t.DisplayName = *a.DisplayName
		}
		if a.Booking != nil {
			t.Booking = *a.Booking
		}
		if a.LiveStatus != nil {
			t.LiveStatus = *a.LiveStatus
		}
		return fmt.Sprintf("Successfully updated trip (ID: %d): %s, Booking: %s%%, Status: %s.",
			t.ID, t.DisplayName, pct(t.Booking), t.LiveStatus), nil
	})
}

func (s *Store) deleteTrip(a tripArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		t := d.tripByName(a.TripDisplayName)
		if t == nil {
			return fmt.Sprintf("Error: Trip '%s' not found.", a.TripDisplayName), nil
		}
		id, name, booking := t.ID, t.DisplayName, t.Booking

		d.Deployments = slices.DeleteFunc(d.Deployments, func(dep Deployment) bool { return dep.TripID == id })
		d.Trips = slices.DeleteFunc(d.Trips, func(t Trip) bool { return t.ID == id })

		msg := fmt.Sprintf("Successfully deleted trip '%s' (ID: %d).", name, id)
		if booking > 0 {
			msg += fmt.Sprintf(" Note: This trip had %s%% bookings.", pct(booking))
		}
		return msg, nil
	})
}

type assignArgs struct {
	TripDisplayName string `json:"trip_display_name"`
	LicensePlate    string `json:"vehicle_license_plate"`
	DriverName      string `json:"driver_name"`
}

func (s *Store) assign(a assignArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		t := d.tripByName(a.TripDisplayName)
		if t == nil {
			return fmt.Sprintf("Error: Trip '%s' not found.", a.TripDisplayName), nil
		}
		v := d.vehicleByPlate(a.LicensePlate)
		if v == nil {
			return fmt.Sprintf("Error: Vehicle '%s' not found.", a.LicensePlate), nil
		}
		dr := d.driverByName(a.DriverName)
		if dr == nil {
			return fmt.Sprintf("Error: Driver '%s' not found.", a.DriverName), nil
		}

		d.Deployments = append(d.Deployments, Deployment{
			ID:        nextID(d.Deployments, func(dep Deployment) int { return dep.ID }),
			TripID:    t.ID,
			VehicleID: v.ID,
			DriverID:  dr.ID,
		})
		return fmt.Sprintf("Successfully assigned vehicle '%s' and driver '%s' to trip '%s'.",
			v.LicensePlate, dr.Name, t.DisplayName), nil
	})
}

func (s *Store) removeVehicle(a tripArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		t := d.tripByName(a.TripDisplayName)
		if t == nil {
			return fmt.Sprintf("Trip '%s' not found.", a.TripDisplayName), nil
		}
		deps := d.deploymentsFor(t.ID)
		if len(deps) == 0 {
			return fmt.Sprintf("No vehicle assigned to trip '%s'.", a.TripDisplayName), nil
		}
		d.deleteDeployment(deps[0].ID)
		return fmt.Sprintf("Successfully removed vehicle from trip '%s'. Bookings may be affected.", a.TripDisplayName), nil
	})
}

type deploymentArgs struct {
	DeploymentID    int    `json:"deployment_id"`
	TripDisplayName string `json:"trip_display_name"`
}

func (s *Store) deleteDeployment(a deploymentArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		var dep *Deployment
		switch {
		case a.DeploymentID != 0:
			dep = find(d.Deployments, func(x *Deployment) bool { return x.ID == a.DeploymentID })
			if dep == nil {
				return fmt.Sprintf("Error: Deployment with ID %d not found.", a.DeploymentID), nil
			}
		case a.TripDisplayName != "":
			t := d.tripByName(a.TripDisplayName)
			if t == nil {
				return fmt.Sprintf("Error: Trip '%s' not found.", a.TripDisplayName), nil
			}
			dep = find(d.Deployments, func(x *Deployment) bool { return x.TripID == t.ID })
			if dep == nil {
				return fmt.Sprintf("No vehicle assigned to trip '%s'.", a.TripDisplayName), nil
			}
		default:
			return "", fmt.Errorf("deployment_id or trip_display_name is required")
		}

		id, plate := dep.ID, d.plate(dep.VehicleID)
		d.deleteDeployment(id)
		return fmt.Sprintf("Successfully deleted deployment (ID: %d). Vehicle %s is now unassigned from trip.", id, plate), nil
	})
}

// Vehicles and drivers

func (s *Store) allVehicles(none) (string, error) {
	return s.read(func(d *Dataset) string {
		if len(d.Vehicles) == 0 {
			return "No vehicles found in the system."
		}
		var b strings.Builder
		b.WriteString("Available Vehicles:\n")
		for _, v := range d.Vehicles {
			fmt.Fprintf(&b, "- %s (ID: %d, Type: %s, Capacity: %d, Status: %s)\n", v.LicensePlate, v.ID, v.Type, v.Capacity, v.Status)
		}
		return b.String()
	}), nil
}

func (s *Store) unassignedVehicles(none) (string, error) {
	return s.read(func(d *Dataset) string {
		var plates []string
		for _, v := range d.Vehicles {
			assigned := slices.ContainsFunc(d.Deployments, func(dep Deployment) bool { return dep.VehicleID == v.ID })
			if !assigned {
				plates = append(plates, v.LicensePlate)
			}
		}
		if len(plates) == 0 {
			return "All vehicles are currently assigned."
		}
		return "Unassigned vehicles: " + strings.Join(plates, ", ")
	}), nil
}

func (s *Store) allDrivers(none) (string, error) {
	return s.read(func(d *Dataset) string {
		if len(d.Drivers) == 0 {
			return "No drivers found in the system."
		}
		var b strings.Builder
		b.WriteString("Available Drivers:\n")
		for _, dr := range d.Drivers {
			fmt.Fprintf(&b, "- %s (ID: %d, Phone: %s)\n", dr.Name, dr.ID, dr.Phone)
		}
		return b.String()
	}), nil
}

// Stops and paths

func (s *Store) allStops(none) (string, error) {
	return s.read(func(d *Dataset) string {
		if len(d.Stops) == 0 {
			return "No stops found in the system."
		}
		var b strings.Builder
		b.WriteString("Available Stops:\n")
		for _, st := range d.Stops {
			fmt.Fprintf(&b, "- %s (ID: %d, Lat: %g, Lon: %g)\n", st.Name, st.ID, st.Latitude, st.Longitude)
		}
		return b.String()
	}), nil
}

type stopArgs struct {
	StopName string `json:"stop_name"`
}

func (s *Store) stopDetails(a stopArgs) (string, error) {
	return s.read(func(d *Dataset) string {
		st := d.stopByName(a.StopName)
		if st == nil {
			return fmt.Sprintf("Stop '%s' not found.", a.StopName)
		}
		return fmt.Sprintf("Stop: %s\nID: %d\nCoordinates: (%g, %g)", st.Name, st.ID, st.Latitude, st.Longitude)
	}), nil
}

type newStop struct {
	Name      string   `json:"name"`
	StopName  string   `json:"stop_name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type createStopsArgs struct {
	newStop
	Stops []newStop `json:"stops"`
}

func (s *Store) createStops(a createStopsArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		create := func(ns newStop) string {
			name := cmp.Or(ns.Name, ns.StopName)
			if name == "" || ns.Latitude == nil || ns.Longitude == nil {
				return fmt.Sprintf("Invalid data for stop: %+v", ns)
			}
			if existing := d.stopByName(name); existing != nil {
				return fmt.Sprintf("Stop '%s' already exists (ID: %d)", name, existing.ID)
			}
			st := Stop{
				ID:        nextID(d.Stops, func(st Stop) int { return st.ID }),
				Name:      name,
				Latitude:  *ns.Latitude,
				Longitude: *ns.Longitude,
			}
			d.Stops = append(d.Stops, st)
			return fmt.Sprintf("Created '%s' (ID: %d)", st.Name, st.ID)
		}

		if len(a.Stops) > 0 {
			lines := make([]string, len(a.Stops))
			for i, ns := range a.Stops {
				lines[i] = create(ns)
			}
			return strings.Join(lines, "\n"), nil
		}
		if cmp.Or(a.Name, a.StopName) == "" || a.Latitude == nil || a.Longitude == nil {
			return "Error: Must provide either (stop_name, latitude, longitude) OR a list of 'stops'.", nil
		}
		return create(a.newStop), nil
	})
}

type updateStopArgs struct {
	StopID    int      `json:"stop_id"`
	Name      *string  `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Store) updateStop(a updateStopArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		st := d.stop(a.StopID)
		if st == nil {
			return fmt.Sprintf("Error: Stop with ID %d not found.", a.StopID), nil
		}
		if a.Name != nil {
			st.Name = *a.Name
		}
		if a.Latitude != nil {
			st.Latitude = *a.Latitude
		}
		if a.Longitude != nil {
			st.Longitude = *a.Longitude
		}
		return fmt.Sprintf("Successfully updated stop (ID: %d): %s at (%g, %g).", st.ID, st.Name, st.Latitude, st.Longitude), nil
	})
}

func (s *Store) allPaths(none) (string, error) {
	return s.read(func(d *Dataset) string {
		if len(d.Paths) == 0 {
			return "No paths found in the system."
		}
		var b strings.Builder
		b.WriteString("Available Paths:\n")
		for _, p := range d.Paths {
			fmt.Fprintf(&b, "- %s (ID: %d, %d stops)\n", p.Name, p.ID, len(p.Stops))
		}
		return b.String()
	}), nil
}

type pathArgs struct {
	PathName string `json:"path_name"`
}

func (s *Store) pathStops(a pathArgs) (string, error) {
	return s.read(func(d *Dataset) string {
		p := d.pathByName(a.PathName)
		if p == nil {
			return fmt.Sprintf("Path '%s' not found.", a.PathName)
		}
		names := make([]string, 0, len(p.Stops))
		for _, id := range p.Stops {
			if st := d.stop(id); st != nil {
				names = append(names, st.Name)
			}
		}
		return fmt.Sprintf("Stops in path '%s': %s", p.Name, strings.Join(names, " → "))
	}), nil
}

type createPathArgs struct {
	PathName  string   `json:"path_name"`
	StopNames []string `json:"stop_names"`
}

func (s *Store) createPath(a createPathArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		if d.pathByName(a.PathName) != nil {
			return fmt.Sprintf("Path '%s' already exists.", a.PathName), nil
		}

		ids := make([]int, 0, len(a.StopNames))
		for _, name := range a.StopNames {
			st := d.stopByName(name)
			if st == nil {
				return fmt.Sprintf("Stop '%s' not found. Create it first.", name), nil
			}
			ids = append(ids, st.ID)
		}

		d.Paths = append(d.Paths, Path{
			ID:    nextID(d.Paths, func(p Path) int { return p.ID }),
			Name:  a.PathName,
			Stops: ids,
		})
		return fmt.Sprintf("Created path '%s' with %d stops: %s", a.PathName, len(ids), strings.Join(a.StopNames, " → ")), nil
	})
}

// Routes

type listRoutesArgs struct {
	Status string `json:"status"`
}

func (s *Store) allRoutes(a listRoutesArgs) (string, error) {
	return s.read(func(d *Dataset) string {
		var b strings.Builder
		for _, r := range d.Routes {
			if a.Status != "" && string(r.Status) != a.Status {
				continue
			}
			fmt.Fprintf(&b, "- %s | Path: %s | %s | Capacity: %d | Status: %s\n",
				r.DisplayName, d.pathName(r.PathID), r.Direction, r.Capacity, r.Status)
		}
		if b.Len() == 0 {
			return "No routes found in the system."
		}
		return "Available Routes:\n" + b.String()
	}), nil
}

func (s *Store) routesUsing(a pathArgs) (string, error) {
	return s.read(func(d *Dataset) string {
		p := d.pathByName(a.PathName)
		if p == nil {
			return fmt.Sprintf("Path '%s' not found.", a.PathName)
		}
		var b strings.Builder
		for _, r := range d.Routes {
			if r.PathID == p.ID {
				fmt.Fprintf(&b, "- %s (%s, %s, Status: %s)\n", r.DisplayName, r.Direction, r.ShiftTime, r.Status)
			}
		}
		if b.Len() == 0 {
			return fmt.Sprintf("No routes found using path '%s'.", a.PathName)
		}
		return fmt.Sprintf("Routes using %s:\n%s", a.PathName, b.String())
	}), nil
}

type createRouteArgs struct {
	RouteName string `json:"route_name"`
	PathName  string `json:"path_name"`
	ShiftTime string `json:"shift_time"`
	Direction string `json:"direction"`
	Capacity  int    `json:"capacity"`
	Status    string `json:"status"`
}

func (s *Store) createRoute(a createRouteArgs) (string, error) {
	if _, err := time.Parse("15:04", a.ShiftTime); err != nil {
		return fmt.Sprintf("Error creating route: shift_time %q is not HH:MM.", a.ShiftTime), nil
	}
	return s.write(func(d *Dataset) (string, error) {
		p := d.pathByName(a.PathName)
		if p == nil {
			return fmt.Sprintf("Error: Path '%s' not found.", a.PathName), nil
		}

		r := Route{
			ID:          nextID(d.Routes, func(r Route) int { return r.ID }),
			PathID:      p.ID,
			DisplayName: a.RouteName,
			ShiftTime:   a.ShiftTime,
			Direction:   a.Direction,
			Status:      ParseRouteStatus(cmp.Or(a.Status, string(RouteActive))),
			Capacity:    a.Capacity,
		}
		d.Routes = append(d.Routes, r)
		return fmt.Sprintf("Successfully created route '%s' (ID: %d) on path '%s' for %s.", r.DisplayName, r.ID, p.Name, r.ShiftTime), nil
	})
}

type updateRouteArgs struct {
	RouteID          int     `json:"route_id"`
	RouteDisplayName string  `json:"route_display_name"`
	NewDisplayName   *string `json:"new_display_name"`
	Capacity         *int    `json:"capacity"`
	Status           *string `json:"status"`
}

func (s *Store) updateRoute(a updateRouteArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		var r *Route
		switch {
		case a.RouteDisplayName != "":
			if r = d.routeByName(a.RouteDisplayName); r == nil {
				return fmt.Sprintf("Error: Route '%s' not found.", a.RouteDisplayName), nil
			}
		case a.RouteID != 0:
			if r = d.route(a.RouteID); r == nil {
				return fmt.Sprintf("Error: Route with ID %d not found.", a.RouteID), nil
			}
		default:
			return "", fmt.Errorf("route_display_name or route_id is required")
		}

		if a.NewDisplayName != nil {
			r.DisplayName = *a.NewDisplayName
		}
		if a.Capacity != nil {
			r.Capacity = *a.Capacity
		}
		if a.Status != nil {
			r.Status = ParseRouteStatus(*a.Status)
		}
		return fmt.Sprintf("Successfully updated route (ID: %d): %s, Capacity: %d, Status: %s.",
			r.ID, r.DisplayName, r.Capacity, r.Status), nil
	})
}

type routeStatusArgs struct {
	RouteDisplayName string `json:"route_display_name"`
	Status           string `json:"status"`
}

func (s *Store) updateRouteStatus(a routeStatusArgs) (string, error) {
	return s.write(func(d *Dataset) (string, error) {
		r := d.routeByName(a.RouteDisplayName)
		if r == nil {
			return fmt.Sprintf("Error: Route '%s' not found.", a.RouteDisplayName), nil
		}
		r.Status = ParseRouteStatus(strings.ToLower(a.Status))
		return fmt.Sprintf("Route '%s' is now %s.", r.DisplayName, r.Status), nil
	})
}

func (d *Dataset) plate(vehicleID int) string {
	if v := d.vehicle(vehicleID); v != nil {
		return v.LicensePlate
	}
	return "Unknown"
}

func (d *Dataset) driverName(driverID int) string {
	if dr := d.driver(driverID); dr != nil {
		return dr.Name
	}
	return "Unknown"
}

func (d *Dataset) pathName(pathID int) string {
	if p := d.path(pathID); p != nil {
		return p.Name
	}
	return "Unknown"
}
