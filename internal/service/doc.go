// Package service provides System, the outer service object that owns one
// command pipeline, and Registry, the set of live systems held by a server.
//
// A System has its own lifecycle guard in front of the pipeline's guard, so
// its identity and state are independent of how the pipeline is composed.
//
// Example Usage:
//
//	sys, err := service.New(transport, command.Upper(), service.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer sys.Close()
//	if _, err := sys.Start(); err != nil {
//		return err
//	}
//	<-sys.TransportClosed()
//	sys.Stop()
package service
