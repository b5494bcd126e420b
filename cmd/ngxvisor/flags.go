package main

type ServeFlags struct {
	ConfigPath string
	Listen     string
	Daemonize  bool
	PidFile    string
	LogFile    string
}

type TestFlags struct {
	Path string
}

type InfoFlags struct {
	Cached bool
}

type LogsFlags struct {
	Kind   string
	Lines  int
	Search string
	Level  string
	Follow bool
}

type LogKindFlags struct {
	Kind string
}
