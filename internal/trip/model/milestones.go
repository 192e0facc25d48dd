package model

import "fmt"

// MilestoneType identifies one of the five fixed trip steps.
type MilestoneType string

const (
	MilestoneContainerPicked    MilestoneType = "CONTAINER_PICKED"
	MilestoneReachedLocation    MilestoneType = "REACHED_LOCATION"
	MilestoneLoadingUnloading   MilestoneType = "LOADING_UNLOADING"
	MilestoneReachedDestination MilestoneType = "REACHED_DESTINATION"
	MilestoneTripCompleted      MilestoneType = "TRIP_COMPLETED"
)

// MilestoneCount is the fixed number of milestones every trip has.
const MilestoneCount = 5

// milestoneOrder lists the milestone types in completion order.
var milestoneOrder = [MilestoneCount]MilestoneType{
	MilestoneContainerPicked,
	MilestoneReachedLocation,
	MilestoneLoadingUnloading,
	MilestoneReachedDestination,
	MilestoneTripCompleted,
}

// milestoneMeanings maps each milestone type to its operational meaning per
// trip flow. The same step means different port operations for imports and
// exports.
var milestoneMeanings = map[MilestoneType]map[TripType]string{
	MilestoneContainerPicked: {
		TripExport: "Empty container picked from CFS / yard",
		TripImport: "Loaded container picked from port / terminal",
	},
	MilestoneReachedLocation: {
		TripExport: "Reached factory for loading",
		TripImport: "Reached factory / warehouse for unloading",
	},
	MilestoneLoadingUnloading: {
		TripExport: "Loading completed and vehicle exited factory",
		TripImport: "Unloading completed and vehicle exited warehouse",
	},
	MilestoneReachedDestination: {
		TripExport: "Reached port",
		TripImport: "Reached empty yard / CFS",
	},
	MilestoneTripCompleted: {
		TripExport: "Container gate-in completed",
		TripImport: "Empty container offloaded",
	},
}

// driverLabels maps each milestone type to the label shown to drivers. The
// label does not depend on the trip flow.
var driverLabels = map[MilestoneType]string{
	MilestoneContainerPicked:    "Container Pick up",
	MilestoneReachedLocation:    "Reached Location",
	MilestoneLoadingUnloading:   "Loading / Unloading",
	MilestoneReachedDestination: "Reached Destination",
	MilestoneTripCompleted:      "Trip Completed",
}

// BackendMeaning resolves the operational meaning of a milestone for the
// given trip flow.
func BackendMeaning(mt MilestoneType, tt TripType) (string, error) {
	flows, ok := milestoneMeanings[mt]
	if !ok {
		return "", fmt.Errorf("invalid milestone type: %s", mt)
	}
	meaning, ok := flows[tt]
	if !ok {
		return "", fmt.Errorf("invalid trip type: %s", tt)
	}
	return meaning, nil
}

// DriverLabel returns the driver-facing label for a milestone type. Unknown
// types fall back to the raw type string.
func DriverLabel(mt MilestoneType) string {
	if label, ok := driverLabels[mt]; ok {
		return label
	}
	return string(mt)
}

// MilestoneTypeByNumber maps a position 1 through 5 to its milestone type.
func MilestoneTypeByNumber(n int) (MilestoneType, error) {
	if n < 1 || n > MilestoneCount {
		return "", fmt.Errorf("invalid milestone number: %d, must be between 1 and %d", n, MilestoneCount)
	}
	return milestoneOrder[n-1], nil
}

// MilestoneNumberByType maps a milestone type to its position 1 through 5.
func MilestoneNumberByType(mt MilestoneType) (int, error) {
	for i, t := range milestoneOrder {
		if t == mt {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("invalid milestone type: %s", mt)
}
