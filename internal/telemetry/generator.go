package telemetry

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

const (
	DefaultLidarPoints = 200

	MazeWidth  = 20
	MazeHeight = 20

	mazeWallDraws       = 50
	mazePassProbability = 0.7
)

var systemModes = []string{
	"Automatic navigation",
	"Obstacle Avoidance Mode",
	"Explore Mode",
	"Follow Mode",
}

var currentActions = []string{
	"Go ahead",
	"Turn right",
	"Turn left",
	"Stop",
	"Back",
	"Slow Progress",
	"Scanning environment",
}

var nextActions = []string{
	"Explore new area",
	"Continue current route",
	"Return to starting point",
	"Avoid obstacles",
	"Wait for command",
}

var reasons = []string{
	"An obstacle is detected ahead, and you need to avoid it",
	"An obstacle is detected on the left, turn right",
	"The magnetic field strength is increasing, and you may be approaching the target",
	"Alcohol concentration is detected, and you should avoid this area",
	"Vibration is increasing, the terrain is uneven, and you should slow down",
	"No obstacles are detected, you can continue to move forward",
	"The current area has been explored, and a new path is being sought",
}

var cameraPlaceholders = []string{
	"https://via.placeholder.com/640x480.png?text=Camera+Feed+1",
	"https://via.placeholder.com/640x480.png?text=Camera+Feed+2",
	"https://via.placeholder.com/640x480.png?text=Camera+Feed+3",
	"https://via.placeholder.com/640x480.png?text=Camera+Feed+4",
	"https://via.placeholder.com/640x480.png?text=Camera+Feed+5",
}

var directions = []int{0, 90, 180, 270}

// Generator produces independent random records. It is not safe for
// concurrent use because rand.Rand is not.
type Generator struct {
	rng         *rand.Rand
	now         func() time.Time
	lidarPoints int
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now for camera timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithLidarPoints sets how many points a lidar scan carries.
func WithLidarPoints(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.lidarPoints = n
		}
	}
}

func NewGenerator(rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{
		rng:         rng,
		now:         time.Now,
		lidarPoints: DefaultLidarPoints,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSeededRand returns a PCG source. A zero seed picks a random one.
func NewSeededRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Chance reports true with probability p.
func (g *Generator) Chance(p float64) bool {
	return g.rng.Float64() < p
}

// Generate returns a fresh record for kind.
func (g *Generator) Generate(kind Kind) (any, error) {
	switch kind {
	case KindObstacle:
		return g.Obstacle(), nil
	case KindMagnetic:
		return g.Magnetic(), nil
	case KindAlcohol:
		return g.Alcohol(), nil
	case KindVibration:
		return g.Vibration(), nil
	case KindLidar:
		return g.Lidar(), nil
	case KindSystemStatus:
		return g.SystemStatus(), nil
	case KindDecision:
		return g.Decision(), nil
	case KindMapData:
		return g.MapData(), nil
	case KindRobotPosition:
		return g.RobotPosition(), nil
	case KindCamera:
		return g.Camera(), nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) coinFlip() bool {
	return g.rng.IntN(2) == 1
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.IntN(len(values))]
}

func (g *Generator) Obstacle() Obstacle {
	return Obstacle{
		Front: g.uniform(5, 200),
		Left:  g.uniform(5, 200),
		Right: g.uniform(5, 200),
		Back:  g.uniform(5, 200),
	}
}

func (g *Generator) Magnetic() Magnetic {
	m := Magnetic{}
	if g.coinFlip() {
		m.Strength = 5.0
	}
	return m
}

func (g *Generator) Alcohol() Alcohol {
	a := Alcohol{Detected: g.coinFlip()}
	if a.Detected {
		a.Level = 1.0
	}
	return a
}

func (g *Generator) Vibration() Vibration {
	v := Vibration{}
	if g.coinFlip() {
		v.Magnitude = 5.0
	}
	return v
}

// Lidar scatters points on a ring 2..10 units around the robot in the x/z
// plane, with a small vertical jitter in y.
func (g *Generator) Lidar() Lidar {
	points := make([]LidarPoint, g.lidarPoints)
	for i := range points {
		angle := g.uniform(0, 2*math.Pi)
		dist := g.uniform(2, 10)
		points[i] = LidarPoint{
			X:         math.Cos(angle) * dist,
			Y:         g.uniform(-1, 1),
			Z:         math.Sin(angle) * dist,
			Intensity: g.uniform(0, 255),
		}
	}
	return Lidar{Points: points}
}

func (g *Generator) SystemStatus() SystemStatus {
	return SystemStatus{
		BatteryLevel:     g.uniform(70, 100),
		CPUUsage:         g.uniform(20, 80),
		MemoryUsage:      g.uniform(30, 80),
		ConnectionStatus: "Connected",
		CurrentMode:      g.pick(systemModes),
	}
}

func (g *Generator) Decision() Decision {
	return Decision{
		CurrentAction: g.pick(currentActions),
		NextAction:    g.pick(nextActions),
		Confidence:    g.uniform(60, 100),
		Reasoning:     g.pick(reasons),
	}
}

// MapData builds a walled maze with random interior walls and the goal in
// the centre cell.
func (g *Generator) MapData() MapData {
	maze := make([][]int, MazeHeight)
	for y := range maze {
		maze[y] = make([]int, MazeWidth)
	}

	for x := 0; x < MazeWidth; x++ {
		maze[0][x] = CellWall
		maze[MazeHeight-1][x] = CellWall
	}
	for y := 0; y < MazeHeight; y++ {
		maze[y][0] = CellWall
		maze[y][MazeWidth-1] = CellWall
	}

	// Draws may land on the same cell twice.
	for i := 0; i < mazeWallDraws; i++ {
		x := 1 + g.rng.IntN(MazeWidth-2)
		y := 1 + g.rng.IntN(MazeHeight-2)
		maze[y][x] = CellWall
	}

	for y := 1; y < MazeHeight-1; y++ {
		for x := 1; x < MazeWidth-1; x++ {
			if maze[y][x] == CellEmpty && g.Chance(mazePassProbability) {
				maze[y][x] = CellPassable
			}
		}
	}

	maze[MazeHeight/2][MazeWidth/2] = CellGoal

	return MapData{
		MazeData: maze,
		Width:    MazeWidth,
		Height:   MazeHeight,
	}
}

// RobotPosition is an unrelated random interior cell on every call.
func (g *Generator) RobotPosition() RobotPosition {
	return RobotPosition{
		Position: GridPoint{
			X: 1 + g.rng.IntN(MazeWidth-2),
			Y: 1 + g.rng.IntN(MazeHeight-2),
		},
		Direction: directions[g.rng.IntN(len(directions))],
	}
}

func (g *Generator) Camera() Camera {
	return Camera{
		ImageURL:  g.pick(cameraPlaceholders),
		Timestamp: g.now().Format(time.RFC3339Nano),
	}
}
