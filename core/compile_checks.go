package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ StoreProvider     = (*MemoryStore)(nil)
	_ TokenIssueStore   = (*MemoryStore)(nil)
	_ ExpiredTokenStore = (*MemoryStore)(nil)
	_ ScopeDescriber    = ScopeDescriptions(nil)
	_ MetricsRecorder   = (*MemoryMetricsRecorder)(nil)
	_ TokenGenerator    = RandomTokenGenerator{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
