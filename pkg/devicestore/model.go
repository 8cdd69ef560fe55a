package devicestore

// HostSettings is the configuration Runtime observes. It is written
// through Store.SaveSettings, which Runtime.UpdateSettings calls, and
// read via LoadSettings/WatchSettings.
type HostSettings struct {
	SharedFolderPath string
	ShowHiddenFiles  bool
	AllowUpload      bool
	AllowDownload    bool
	AllowDelete      bool
}

// DefaultHostSettings returns the defaults named in the data model:
// hidden files off, everything else allowed.
func DefaultHostSettings() HostSettings {
	return HostSettings{
		ShowHiddenFiles: false,
		AllowUpload:     true,
		AllowDownload:   true,
		AllowDelete:     true,
	}
}

// PairedDevice is a durable record of an approved device.
type PairedDevice struct {
	DeviceID          string
	DisplayName       string
	UserAgent         string
	LastKnownIP       string
	CreatedAtMs       uint64
	LastConnectedAtMs uint64
}
