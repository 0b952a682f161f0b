package system

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostSummary describes the machine for the performance report.
func HostSummary() string {
	model := runtime.GOARCH
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		model = infos[0].ModelName
	}
	total := "?"
	if vm, err := mem.VirtualMemory(); err == nil {
		total = fmt.Sprintf("%.1f GiB", float64(vm.Total)/(1<<30))
	}
	return fmt.Sprintf("%s | %d CPU | RAM %s", model, runtime.NumCPU(), total)
}

// Usage is a snapshot of this process.
type Usage struct {
	CPUPercent float64
	RSS        uint64
}

// ProcessUsage reports CPU and resident memory of the current process.
func ProcessUsage() (Usage, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return Usage{}, err
	}
	var u Usage
	if u.CPUPercent, err = p.CPUPercent(); err != nil {
		return Usage{}, err
	}
	mi, err := p.MemoryInfo()
	if err != nil {
		return Usage{}, err
	}
	u.RSS = mi.RSS
	return u, nil
}
