// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"os"
	"path/filepath"
	"time"

	"hvaccore/v2/internal/acclient"
	"hvaccore/v2/internal/accessory"
	"hvaccore/v2/internal/actionexec"
	"hvaccore/v2/internal/config"
	"hvaccore/v2/internal/events"
	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/internal/hvacstate"
	"hvaccore/v2/internal/orchestrator"
	"hvaccore/v2/internal/sensorclient"
	"hvaccore/v2/internal/sensortracker"
	"hvaccore/v2/internal/tssink"
	"hvaccore/v2/internal/weatherclient"
	"hvaccore/v2/internal/weathercache"
	"hvaccore/v2/pkg/appctx"
	"hvaccore/v2/pkg/eventbus"
	"hvaccore/v2/pkg/logger"
	"hvaccore/v2/pkg/rootserv"
	"hvaccore/v2/pkg/service"
	"hvaccore/v2/pkg/sysmon"
)

func main() {
	rootdir := os.Getenv("PROJECT_ROOT")
	if rootdir == "" {
		rootdir = "."
	}

	logger.Init(filepath.Join(rootdir, "var/logs/hvaccore.log"))

	appConf := config.LoadFile(filepath.Join(rootdir, "var/config/hvaccore.json"))
	appConf.RootDir = rootdir
	appConf.DataDir = filepath.Join(rootdir, "var/cache")

	ctx, ctxCancel := appctx.New()

	server := rootserv.New(":80")
	sysMonitorService := sysmon.New()

	server.Attach("/logger", "Logger", logger.WebService())
	server.Attach("/monitor", "System Monitor", sysMonitorService)

	runnables := []service.Runnable{server}

	for _, d := range appConf.Devices {
		eb := eventbus.New()

		acClient := acclient.NewClient(d.AC.Addr, d.ID)
		acClient.OnState(func(snapshot hvac.DeviceSnapshot) {
			eb.Publish(events.TopicDeviceSnapshot, events.DeviceSnapshotUpdate{Snapshot: snapshot})
		})

		flagTable := acclient.DefaultCommandFlagTable()

		sensorPoll := time.Duration(d.ExternalSensor.PollIntervalSeconds) * time.Second
		tracker := sensortracker.New(sensorclient.NewClient(d.ExternalSensor.Addr), eb, sensorPoll, d.AC.MinSetTemp, d.AC.MaxSetTemp)

		weatherPoll := time.Duration(d.Weather.PollIntervalMinutes) * time.Minute
		weatherValidFor := time.Duration(d.Weather.CacheValidMinutes) * time.Minute
		weatherTimeout := time.Duration(d.Weather.TimeoutSeconds) * time.Second
		loc := hvac.Location{Latitude: d.Location.Latitude, Longitude: d.Location.Longitude}
		weatherCache := weathercache.New(weatherclient.NewClient(weatherTimeout), eb, loc, weatherPoll, weatherValidFor)

		machine := hvacstate.NewMachine(d.StateMachine, time.Now())
		exec := actionexec.New(acClient, tracker, flagTable, d.AC.AccountType, d.AC.DisplayType)

		var sink tssink.Sink = tssink.NoopSink{}
		if d.DataLogger.Addr != "" {
			sink = tssink.NewHTTPSink(d.DataLogger.Addr, d.DataLogger.ApiKey)
		}
		sinkInterval := time.Duration(d.DataLogger.IntervalSeconds) * time.Second

		comfortMin, comfortMax := d.ComfortBand()
		orch := orchestrator.New(d.ID, eb, tracker, weatherCache, d.Calculator, machine, exec, sink, sinkInterval,
			d.TargetTemperature, comfortMin, comfortMax)

		acc := accessory.New(d.ID, eb, acClient, d.AC.AccountType, d.AC.DisplayType)

		server.Attach("/devices/"+d.ID+"/accessory", d.ID+" Accessory", acc)
		server.Attach("/devices/"+d.ID+"/weather", d.ID+" Weather Data", weatherCache)

		runnables = append(runnables, acClient, tracker, weatherCache, orch, acc)
	}

	exitCh := service.Start(ctx, ctxCancel, runnables)

	os.Exit(<-exitCh)
}
