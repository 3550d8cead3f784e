package domain

import "time"

// SpeedtestResult is one run of the speed test. Speeds are bits per second,
// ping is milliseconds.
type SpeedtestResult struct {
	ID        int64     `db:"id" json:"-"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Download  float64   `db:"download" json:"download"`
	Upload    float64   `db:"upload" json:"upload"`
	Ping      float64   `db:"ping" json:"ping"`
	Server    string    `db:"server" json:"server"`
	ServerID  string    `db:"server_id" json:"-"`
}

func (r SpeedtestResult) DownloadMbps() float64 { return r.Download / 1_000_000 }
func (r SpeedtestResult) UploadMbps() float64   { return r.Upload / 1_000_000 }

type ServiceState string

const (
	ServiceOK      ServiceState = "ok"
	ServiceDown    ServiceState = "down"
	ServiceUnknown ServiceState = "unknown"
)
