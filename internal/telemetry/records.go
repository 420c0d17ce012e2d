// Package telemetry defines the robot records published by the simulator and
// the generator that fills them with random values.
package telemetry

// Obstacle holds ultrasonic distances in centimetres.
type Obstacle struct {
	Front float64 `json:"front"`
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
	Back  float64 `json:"back"`
}

// Magnetic is a binarised magnetometer reading; only Strength varies.
type Magnetic struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Z        int     `json:"z"`
	Strength float64 `json:"strength"`
}

type Alcohol struct {
	Level    float64 `json:"level"`
	Detected bool    `json:"detected"`
}

// Vibration is a binarised accelerometer reading; only Magnitude varies.
type Vibration struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Z         int     `json:"z"`
	Magnitude float64 `json:"magnitude"`
}

type LidarPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Intensity float64 `json:"intensity"`
}

type Lidar struct {
	Points []LidarPoint `json:"points"`
}

type SystemStatus struct {
	BatteryLevel     float64 `json:"batteryLevel"`
	CPUUsage         float64 `json:"cpuUsage"`
	MemoryUsage      float64 `json:"memoryUsage"`
	ConnectionStatus string  `json:"connectionStatus"`
	CurrentMode      string  `json:"currentMode"`
}

type Decision struct {
	CurrentAction string  `json:"currentAction"`
	NextAction    string  `json:"nextAction"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// Maze cell values.
const (
	CellEmpty    = 0
	CellPassable = 1
	CellWall     = 2
	CellGoal     = 3
)

// MapData is a row-major maze: MazeData[y][x].
type MapData struct {
	MazeData [][]int `json:"mazeData"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

type GridPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type RobotPosition struct {
	Position  GridPoint `json:"position"`
	Direction int       `json:"direction"`
}

type Camera struct {
	ImageURL  string `json:"imageUrl"`
	Timestamp string `json:"timestamp"`
}
