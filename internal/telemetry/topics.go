package telemetry

// Kind identifies one record type and the topic it is published on.
type Kind string

const (
	KindObstacle      Kind = "obstacle"
	KindMagnetic      Kind = "magnetic"
	KindAlcohol       Kind = "alcohol"
	KindVibration     Kind = "vibration"
	KindLidar         Kind = "lidar"
	KindSystemStatus  Kind = "system_status"
	KindDecision      Kind = "decision"
	KindMapData       Kind = "map_data"
	KindRobotPosition Kind = "robot_position"
	KindCamera        Kind = "camera"
)

var topics = map[Kind]string{
	KindObstacle:      "robot/sensors/obstacle",
	KindMagnetic:      "robot/sensors/magnetic",
	KindAlcohol:       "robot/sensors/alcohol",
	KindVibration:     "robot/sensors/vibration",
	KindLidar:         "robot/sensors/lidar",
	KindSystemStatus:  "robot/system/status",
	KindDecision:      "robot/decision/current",
	KindMapData:       "robot/map/data",
	KindRobotPosition: "robot/map/position",
	KindCamera:        "robot/camera/feed",
}

// Kinds lists every record kind in publish order.
var Kinds = []Kind{
	KindObstacle,
	KindMagnetic,
	KindAlcohol,
	KindVibration,
	KindLidar,
	KindSystemStatus,
	KindDecision,
	KindMapData,
	KindRobotPosition,
	KindCamera,
}

// Topic returns the MQTT topic for k, or "" for an unknown kind.
func (k Kind) Topic() string {
	return topics[k]
}
