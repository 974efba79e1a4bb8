package command

import (
	"strconv"
	"strings"

	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

type argKind int

const (
	argNone argKind = iota
	argInt
	argUnit
)

type route struct {
	prefix string
	kind   Kind
	arg    argKind
}

// routes is checked in order; the first matching prefix wins.
var routes = []route{
	{"/api/system/status", KindStatus, argNone},
	{"/api/control/heat/", KindHeat, argInt},
	{"/api/control/cool/", KindCool, argInt},
	{"/api/system/set_dht11_offset/", KindSetOffset, argInt},
	{"/api/system/read_dht11_offset/", KindReadOffset, argNone},
	{"/api/system/off", KindOff, argNone},
	{"/api/system/test", KindSelfTest, argNone},
	{"/api/system/restart", KindRestart, argNone},
	{"/api/status/temp", KindReadTemperature, argNone},
	{"/api/status/humidity", KindReadHumidity, argNone},
	{"/api/system/unit/", KindSetUnit, argUnit},
	{"/api/system/set_default_temp/", KindSetDefaultTemperature, argInt},
}

// Parse maps a request target to a Command. On failure the returned Command
// still carries the matched Kind (KindEmpty or KindUnknown when nothing
// matched) and the error is a *Error.
func Parse(target string) (Command, error) {
	if target == "" {
		return Command{Kind: KindEmpty}, ErrEmptyRequest
	}
	for _, r := range routes {
		if !strings.HasPrefix(target, r.prefix) {
			continue
		}
		cmd := Command{Kind: r.kind}
		rest := target[len(r.prefix):]
		switch r.arg {
		case argInt:
			v, err := strconv.Atoi(rest)
			if err != nil {
				return cmd, malformed(err)
			}
			cmd.Value = v
		case argUnit:
			u, err := thermostat.ParseUnit(rest)
			if err != nil {
				return cmd, ErrInvalidUnit
			}
			cmd.Unit = u
		}
		return cmd, nil
	}
	return Command{Kind: KindUnknown}, ErrUnknownEndpoint
}
