// Package diagnostics collects system and runtime information for the
// support command and the system API endpoints.
package diagnostics

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
)

// Monotonic clock so app uptime survives system time changes
var startTime = time.Now()

// SystemInfo represents basic host information.
type SystemInfo struct {
	OS            string    `json:"os"`
	Architecture  string    `json:"architecture"`
	Hostname      string    `json:"hostname"`
	Platform      string    `json:"platform"`
	PlatformVer   string    `json:"platform_version"`
	KernelVersion string    `json:"kernel_version"`
	UpTime        uint64    `json:"uptime_seconds"`
	BootTime      time.Time `json:"boot_time"`
	AppStart      time.Time `json:"app_start_time"`
	AppUptime     int64     `json:"app_uptime_seconds"`
	NumCPU        int       `json:"num_cpu"`
	GoVersion     string    `json:"go_version"`
	InContainer   bool      `json:"in_container"`
}

// ResourceInfo represents system resource usage.
type ResourceInfo struct {
	CPUUsage    float64 `json:"cpu_usage_percent"`
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryFree  uint64  `json:"memory_free"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	SwapTotal   uint64  `json:"swap_total"`
	SwapUsed    uint64  `json:"swap_used"`
	ProcessMem  float64 `json:"process_memory_mb"`
	ProcessCPU  float64 `json:"process_cpu_percent"`
}

// DiskInfo represents usage of one mounted filesystem.
type DiskInfo struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Fstype     string  `json:"fstype"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Free       uint64  `json:"free"`
	UsagePerc  float64 `json:"usage_percent"`
}

// CollectSystemInfo gathers host information.
func CollectSystemInfo() (SystemInfo, error) {
	hostInfo, err := host.Info()
	if err != nil {
		return SystemInfo{}, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "host-info").
			Build()
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return SystemInfo{
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
		Hostname:      hostname,
		Platform:      hostInfo.Platform,
		PlatformVer:   hostInfo.PlatformVersion,
		KernelVersion: hostInfo.KernelVersion,
		UpTime:        hostInfo.Uptime,
		BootTime:      time.Unix(int64(hostInfo.BootTime), 0),
		AppStart:      startTime,
		AppUptime:     int64(time.Since(startTime).Seconds()),
		NumCPU:        runtime.NumCPU(),
		GoVersion:     runtime.Version(),
		InContainer:   conf.RunningInContainer(),
	}, nil
}

// CollectResourceInfo gathers memory, swap, CPU and process usage. The CPU
// sample blocks for the given interval; zero samples instantaneously.
func CollectResourceInfo(sampleInterval time.Duration) (ResourceInfo, error) {
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return ResourceInfo{}, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "virtual-memory").
			Build()
	}

	info := ResourceInfo{
		MemoryTotal: memInfo.Total,
		MemoryUsed:  memInfo.Used,
		MemoryFree:  memInfo.Free,
		MemoryUsage: memInfo.UsedPercent,
	}

	if swapInfo, err := mem.SwapMemory(); err == nil {
		info.SwapTotal = swapInfo.Total
		info.SwapUsed = swapInfo.Used
	}

	if cpuPercent, err := cpu.Percent(sampleInterval, false); err == nil && len(cpuPercent) > 0 {
		info.CPUUsage = cpuPercent[0]
	}

	// Process stats are best effort, a restricted container may refuse them
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if procMem, err := proc.MemoryInfo(); err == nil && procMem != nil {
			info.ProcessMem = float64(procMem.RSS) / 1024 / 1024
		}
		if procCPU, err := proc.CPUPercent(); err == nil {
			info.ProcessCPU = procCPU
		}
	}

	return info, nil
}

// CollectDiskInfo gathers usage for all physical partitions. Partitions whose
// usage cannot be read are skipped.
func CollectDiskInfo() ([]DiskInfo, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "disk-partitions").
			Build()
	}

	disks := make([]DiskInfo, 0, len(partitions))
	for _, partition := range partitions {
		usage, err := disk.Usage(partition.Mountpoint)
		if err != nil {
			continue
		}

		disks = append(disks, DiskInfo{
			Device:     partition.Device,
			Mountpoint: partition.Mountpoint,
			Fstype:     partition.Fstype,
			Total:      usage.Total,
			Used:       usage.Used,
			Free:       usage.Free,
			UsagePerc:  usage.UsedPercent,
		})
	}

	return disks, nil
}
