package models

import "strings"

// VehicleType tags the kind of vehicle simulated for a delivery.
type VehicleType string

const (
	VehicleRobot VehicleType = "robot" // ground
	VehicleDrone VehicleType = "drone" // aerial
)

// CruisingSpeedKmh is the simulated speed for every vehicle type.
const CruisingSpeedKmh = 15.0

// ParseVehicleType maps free text to a VehicleType; anything unknown is a robot.
func ParseVehicleType(s string) VehicleType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drone", "aerial", "air":
		return VehicleDrone
	default:
		return VehicleRobot
	}
}

// SpeedKmh returns the cruising speed used for duration planning.
func (v VehicleType) SpeedKmh() float64 {
	return CruisingSpeedKmh
}
