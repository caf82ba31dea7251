// Package config loads the stack's static configuration from an INI
// file: link addressing, application timeouts, outstation event/SBO
// sizing, and master scheduling rates. Unlike a CANopen object
// dictionary there is nothing to negotiate over the wire at startup;
// the whole of a DNP3 endpoint's configuration is local and fixed
// before the link ever opens, so it is loaded once from disk rather
// than read/written through a remote configurator.
package config

import "gopkg.in/ini.v1"

// LinkConfig configures the link layer.
type LinkConfig struct {
	LocalAddress  uint16
	RemoteAddress uint16
	IsMaster      bool
	NumRetry      int
	AckTimeoutMs  int
}

// AppConfig configures the application channel.
type AppConfig struct {
	MaxFragmentSize   int
	ConfirmTimeoutMs  int
	ResponseTimeoutMs int
}

// OutstationConfig configures outstation-side behavior.
type OutstationConfig struct {
	DisableUnsol          bool
	UnsolClassMask        uint8
	UnsolPackTimerMs      int
	SelectTimeoutMs       int
	MaxControlsPerRequest int
	EventBufferClass1     int
	EventBufferClass2     int
	EventBufferClass3     int
}

// MasterConfig configures master-side scheduling.
type MasterConfig struct {
	IntegrityRateMs int
	TaskRetryRateMs int
	UnsolOnStartup  bool
	EnableUnsol     bool
	TimeSyncMode    string
}

// StackConfig is the complete set of knobs enumerated for this core:
// link addressing/retry, application fragment/timeout sizing,
// outstation event and SBO sizing, and master scheduling rates.
type StackConfig struct {
	Link       LinkConfig
	App        AppConfig
	Outstation OutstationConfig
	Master     MasterConfig
}

// Default returns a StackConfig with the defaults named in the wire
// interface section: 2048-byte max fragments, unsolicited disabled.
func Default() StackConfig {
	return StackConfig{
		App: AppConfig{
			MaxFragmentSize:   2048,
			ConfirmTimeoutMs:  5000,
			ResponseTimeoutMs: 5000,
		},
		Outstation: OutstationConfig{
			UnsolPackTimerMs:      200,
			SelectTimeoutMs:       10000,
			MaxControlsPerRequest: 16,
			EventBufferClass1:     100,
			EventBufferClass2:     100,
			EventBufferClass3:     100,
		},
		Master: MasterConfig{
			IntegrityRateMs: 300000,
			TaskRetryRateMs: 5000,
			TimeSyncMode:    "none",
		},
	}
}

// Load reads a StackConfig from an INI file at path, starting from
// Default() and overwriting any key present in the file. Sections
// mirror the config knobs: [link], [app], [outstation], [master].
func Load(path string) (StackConfig, error) {
	cfg := Default()
	f, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}

	if s := f.Section("link"); s != nil {
		cfg.Link.LocalAddress = uint16(s.Key("local_address").MustUint(uint(cfg.Link.LocalAddress)))
		cfg.Link.RemoteAddress = uint16(s.Key("remote_address").MustUint(uint(cfg.Link.RemoteAddress)))
		cfg.Link.IsMaster = s.Key("is_master").MustBool(cfg.Link.IsMaster)
		cfg.Link.NumRetry = s.Key("num_retry").MustInt(cfg.Link.NumRetry)
		cfg.Link.AckTimeoutMs = s.Key("ack_timeout").MustInt(cfg.Link.AckTimeoutMs)
	}

	if s := f.Section("app"); s != nil {
		cfg.App.MaxFragmentSize = s.Key("max_fragment_size").MustInt(cfg.App.MaxFragmentSize)
		cfg.App.ConfirmTimeoutMs = s.Key("confirm_timeout").MustInt(cfg.App.ConfirmTimeoutMs)
		cfg.App.ResponseTimeoutMs = s.Key("response_timeout").MustInt(cfg.App.ResponseTimeoutMs)
	}

	if s := f.Section("outstation"); s != nil {
		cfg.Outstation.DisableUnsol = s.Key("disable_unsol").MustBool(cfg.Outstation.DisableUnsol)
		cfg.Outstation.UnsolClassMask = uint8(s.Key("unsol_class_mask").MustUint(uint(cfg.Outstation.UnsolClassMask)))
		cfg.Outstation.UnsolPackTimerMs = s.Key("unsol_pack_timer").MustInt(cfg.Outstation.UnsolPackTimerMs)
		cfg.Outstation.SelectTimeoutMs = s.Key("select_timeout").MustInt(cfg.Outstation.SelectTimeoutMs)
		cfg.Outstation.MaxControlsPerRequest = s.Key("max_controls_per_request").MustInt(cfg.Outstation.MaxControlsPerRequest)
		cfg.Outstation.EventBufferClass1 = s.Key("event_buffer_class1").MustInt(cfg.Outstation.EventBufferClass1)
		cfg.Outstation.EventBufferClass2 = s.Key("event_buffer_class2").MustInt(cfg.Outstation.EventBufferClass2)
		cfg.Outstation.EventBufferClass3 = s.Key("event_buffer_class3").MustInt(cfg.Outstation.EventBufferClass3)
	}

	if s := f.Section("master"); s != nil {
		cfg.Master.IntegrityRateMs = s.Key("integrity_rate").MustInt(cfg.Master.IntegrityRateMs)
		cfg.Master.TaskRetryRateMs = s.Key("task_retry_rate").MustInt(cfg.Master.TaskRetryRateMs)
		cfg.Master.UnsolOnStartup = s.Key("unsol_on_startup").MustBool(cfg.Master.UnsolOnStartup)
		cfg.Master.EnableUnsol = s.Key("enable_unsol").MustBool(cfg.Master.EnableUnsol)
		cfg.Master.TimeSyncMode = s.Key("time_sync_mode").MustString(cfg.Master.TimeSyncMode)
	}

	return cfg, nil
}
