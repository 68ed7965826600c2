package domain

type (
	ExamID string
	// PairingID is the out-of-band session identifier shared between a
	// primary device and its mobile companion.
	PairingID string
	Device    string
)

const (
	DeviceLaptop       Device = "laptop"
	DeviceMobile       Device = "mobile"
	DeviceAdminMonitor Device = "admin-monitor"

	MaxDeviceLen = 32
)
