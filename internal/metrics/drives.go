package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"turbo-delete/internal/disk"
)

// Drive and process metrics
var (
	// ErrorsTotal tracks internal errors (server failures, DB writes)
	ErrorsTotal prometheus.Counter

	// DriveFreeBytes tracks available space per mount point
	DriveFreeBytes *prometheus.GaugeVec

	// DriveTotalBytes tracks capacity per mount point
	DriveTotalBytes *prometheus.GaugeVec

	// DriveUsedPercent tracks used space percentage per mount point
	DriveUsedPercent *prometheus.GaugeVec
)

func initDriveMetrics() {
	ErrorsTotal = NewCounter(
		"turbodelete_errors_total",
		"Total number of internal errors encountered.",
	)

	DriveFreeBytes = NewGaugeVec(
		"turbodelete_drive_free_bytes",
		"Available space on the volume.",
		[]string{"mount_point"},
	)

	DriveTotalBytes = NewGaugeVec(
		"turbodelete_drive_total_bytes",
		"Total capacity of the volume.",
		[]string{"mount_point"},
	)

	DriveUsedPercent = NewGaugeVec(
		"turbodelete_drive_used_percent",
		"Used space percentage of the volume.",
		[]string{"mount_point"},
	)
}

func registerDriveMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(DriveFreeBytes)
	prometheus.MustRegister(DriveTotalBytes)
	prometheus.MustRegister(DriveUsedPercent)
}

// UpdateDriveMetrics publishes a drive snapshot
func UpdateDriveMetrics(drives []disk.Drive) {
	for _, d := range drives {
		DriveFreeBytes.WithLabelValues(d.MountPoint).Set(float64(d.AvailableSpace))
		DriveTotalBytes.WithLabelValues(d.MountPoint).Set(float64(d.TotalSpace))
		DriveUsedPercent.WithLabelValues(d.MountPoint).Set(d.UsedPercent())
	}
}
