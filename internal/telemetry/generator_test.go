package telemetry

import (
	"encoding/json"
	"math"
	"slices"
	"testing"
	"time"
)

const samples = 500

func newTestGenerator(opts ...Option) *Generator {
	return NewGenerator(NewSeededRand(42), opts...)
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func TestObstacleRanges(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < samples; i++ {
		o := g.Obstacle()
		for name, v := range map[string]float64{"front": o.Front, "left": o.Left, "right": o.Right, "back": o.Back} {
			if !inRange(v, 5, 200) {
				t.Fatalf("%s = %v outside [5,200]", name, v)
			}
		}
	}
}

func TestMagneticAndVibrationAreBinary(t *testing.T) {
	g := newTestGenerator()
	var sawOn, sawOff bool
	for i := 0; i < samples; i++ {
		m := g.Magnetic()
		if m.Strength != 0.0 && m.Strength != 5.0 {
			t.Fatalf("magnetic strength = %v", m.Strength)
		}
		if m.X != 0 || m.Y != 0 || m.Z != 0 {
			t.Fatalf("magnetic axes not zero: %+v", m)
		}
		sawOn = sawOn || m.Strength == 5.0
		sawOff = sawOff || m.Strength == 0.0

		v := g.Vibration()
		if v.Magnitude != 0.0 && v.Magnitude != 5.0 {
			t.Fatalf("vibration magnitude = %v", v.Magnitude)
		}
		if v.X != 0 || v.Y != 0 || v.Z != 0 {
			t.Fatalf("vibration axes not zero: %+v", v)
		}
	}
	if !sawOn || !sawOff {
		t.Errorf("magnetic strength never varied (on=%v off=%v)", sawOn, sawOff)
	}
}

func TestAlcoholLevelMirrorsDetected(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < samples; i++ {
		a := g.Alcohol()
		if (a.Level == 1.0) != a.Detected {
			t.Fatalf("level %v does not mirror detected %v", a.Level, a.Detected)
		}
		if a.Level != 0.0 && a.Level != 1.0 {
			t.Fatalf("level = %v", a.Level)
		}
	}
}

func TestLidarGeometry(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < 20; i++ {
		scan := g.Lidar()
		if len(scan.Points) != DefaultLidarPoints {
			t.Fatalf("got %d points, want %d", len(scan.Points), DefaultLidarPoints)
		}
		for _, p := range scan.Points {
			r := math.Hypot(p.X, p.Z)
			if !inRange(r, 2-1e-9, 10+1e-9) {
				t.Fatalf("radius %v outside [2,10]", r)
			}
			if !inRange(p.Y, -1, 1) {
				t.Fatalf("y = %v outside [-1,1]", p.Y)
			}
			if !inRange(p.Intensity, 0, 255) {
				t.Fatalf("intensity = %v outside [0,255]", p.Intensity)
			}
		}
	}
}

func TestLidarPointsOption(t *testing.T) {
	g := newTestGenerator(WithLidarPoints(16))
	if n := len(g.Lidar().Points); n != 16 {
		t.Errorf("got %d points, want 16", n)
	}
}

func TestSystemStatusRanges(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < samples; i++ {
		s := g.SystemStatus()
		if !inRange(s.BatteryLevel, 70, 100) || !inRange(s.CPUUsage, 20, 80) || !inRange(s.MemoryUsage, 30, 80) {
			t.Fatalf("status out of range: %+v", s)
		}
		if s.ConnectionStatus != "Connected" {
			t.Fatalf("connectionStatus = %q", s.ConnectionStatus)
		}
		if !slices.Contains(systemModes, s.CurrentMode) {
			t.Fatalf("unknown mode %q", s.CurrentMode)
		}
	}
}

func TestDecisionFieldsComeFromFixedLists(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < samples; i++ {
		d := g.Decision()
		if !slices.Contains(currentActions, d.CurrentAction) ||
			!slices.Contains(nextActions, d.NextAction) ||
			!slices.Contains(reasons, d.Reasoning) {
			t.Fatalf("decision has unknown label: %+v", d)
		}
		if !inRange(d.Confidence, 60, 100) {
			t.Fatalf("confidence = %v", d.Confidence)
		}
	}
}

func TestMapDataLayout(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < 50; i++ {
		m := g.MapData()
		if m.Width != 20 || m.Height != 20 || len(m.MazeData) != 20 {
			t.Fatalf("bad dimensions %dx%d rows=%d", m.Width, m.Height, len(m.MazeData))
		}

		goals := 0
		for y, row := range m.MazeData {
			if len(row) != 20 {
				t.Fatalf("row %d has %d cells", y, len(row))
			}
			for x, cell := range row {
				border := x == 0 || y == 0 || x == 19 || y == 19
				switch {
				case border && cell != CellWall:
					t.Fatalf("border cell (%d,%d) = %d", x, y, cell)
				case cell == CellGoal:
					goals++
					if x != 10 || y != 10 {
						t.Fatalf("goal at (%d,%d)", x, y)
					}
				case !border && cell != CellEmpty && cell != CellPassable && cell != CellWall:
					t.Fatalf("interior cell (%d,%d) = %d", x, y, cell)
				}
			}
		}
		if goals != 1 {
			t.Fatalf("found %d goals", goals)
		}
	}
}

func TestRobotPositionRanges(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < samples; i++ {
		p := g.RobotPosition()
		if p.Position.X < 1 || p.Position.X > 18 || p.Position.Y < 1 || p.Position.Y > 18 {
			t.Fatalf("position out of range: %+v", p.Position)
		}
		if !slices.Contains(directions, p.Direction) {
			t.Fatalf("direction = %d", p.Direction)
		}
	}
}

func TestCameraUsesClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	g := newTestGenerator(WithClock(func() time.Time { return fixed }))

	c := g.Camera()
	if c.Timestamp != "2024-05-01T12:30:00Z" {
		t.Errorf("timestamp = %q", c.Timestamp)
	}
	if !slices.Contains(cameraPlaceholders, c.ImageURL) {
		t.Errorf("unknown image url %q", c.ImageURL)
	}
}

func TestSeededGeneratorsAreDeterministic(t *testing.T) {
	a := NewGenerator(NewSeededRand(7))
	b := NewGenerator(NewSeededRand(7))
	for i := 0; i < 10; i++ {
		if a.Obstacle() != b.Obstacle() {
			t.Fatal("same seed produced different obstacles")
		}
	}
}

func TestGenerateEncodesEveryKind(t *testing.T) {
	g := newTestGenerator()
	for _, kind := range Kinds {
		if kind.Topic() == "" {
			t.Errorf("%s has no topic", kind)
		}
		rec, err := g.Generate(kind)
		if err != nil {
			t.Fatalf("Generate(%s): %v", kind, err)
		}
		if _, err := json.Marshal(rec); err != nil {
			t.Fatalf("marshal %s: %v", kind, err)
		}
	}

	if _, err := g.Generate(Kind("sonar")); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestRecordFieldNames(t *testing.T) {
	g := newTestGenerator()
	data, err := json.Marshal(g.RobotPosition())
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	pos, ok := decoded["position"].(map[string]any)
	if !ok {
		t.Fatalf("position missing in %s", data)
	}
	if _, ok := pos["x"]; !ok {
		t.Errorf("position.x missing in %s", data)
	}
	if _, ok := decoded["direction"]; !ok {
		t.Errorf("direction missing in %s", data)
	}
}
