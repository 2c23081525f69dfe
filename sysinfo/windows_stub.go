//go:build !windows

package sysinfo

import "context"

func windowsVersion() (string, error) { return "", errUnsupported }

func setupAPIGPUs(context.Context) (string, error) { return "", errUnsupported }

func registryGPUs(context.Context) (string, error) { return "", errUnsupported }

func bestInterfaceIP() string { return "" }

func windowsBattery(context.Context) (string, error) { return "", errUnsupported }

func systemDriveFallback(context.Context) ([]StorageEntry, error) { return nil, errUnsupported }
