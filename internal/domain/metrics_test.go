package domain

import "testing"

func TestMetricLevels(t *testing.T) {
	cases := []struct {
		name string
		got  MetricLevel
		want MetricLevel
	}{
		{"load per cpu ok", LoadLevel(4, 4), LevelOK},
		{"load per cpu caution", LoadLevel(6, 4), LevelCaution},
		{"load per cpu critical", LoadLevel(8.1, 4), LevelCritical},
		{"load no cpu count", LoadLevel(1.5, 0), LevelCaution},
		{"memory edge", MemoryLevel(75), LevelOK},
		{"memory caution", MemoryLevel(90), LevelCaution},
		{"memory critical", MemoryLevel(90.1), LevelCritical},
		{"temp", TempLevel(61), LevelCaution},
		{"disk", DiskLevel(96), LevelCritical},
		{"storage", StorageLevel(85), LevelOK},
		{"storage caution", StorageLevel(86), LevelCaution},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestSampleFromSnapshot(t *testing.T) {
	h := HostSnapshot{
		At:             base,
		Load:           [3]float64{0.456, 0, 0},
		CPUPercent:     7.25,
		MemPercent:     33.333,
		TempC:          55,
		DiskWriteBytes: 3 << 20,
		NetRxBytes:     1536 << 10,
	}

	s := h.Sample("daemon")
	if s.Load1 != 0.46 || s.CPUPercent != 7.3 || s.MemoryPercent != 33.3 || s.DiskWriteMB != 3 || s.NetRxMB != 1.5 {
		t.Errorf("sample = %+v", s)
	}
	if s.TempC != 0 {
		t.Errorf("temp without sensor = %v", s.TempC)
	}
	if !s.Timestamp.Equal(base) || s.Source != "daemon" {
		t.Errorf("sample = %+v", s)
	}
}
