package collect

import (
	"bufio"
	"io"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// DefaultMeminfoPath is the kernel's memory summary.
const DefaultMeminfoPath = "/proc/meminfo"

// ProcMemory reports system memory from /proc/meminfo, falling back to the Go
// runtime's own heap figures when the file is unavailable.
type ProcMemory struct {
	Path string
}

// FreeBytes returns available memory.
func (p *ProcMemory) FreeBytes() uint32 {
	free, _ := p.read()
	return free
}

// TotalBytes returns total memory.
func (p *ProcMemory) TotalBytes() uint32 {
	_, total := p.read()
	return total
}

func (p *ProcMemory) read() (free, total uint32) {
	path := p.Path
	if path == "" {
		path = DefaultMeminfoPath
	}
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if fr, tot, ok := ParseMeminfo(f); ok {
			return fr, tot
		}
	}
	return runtimeMemory()
}

// ParseMeminfo extracts MemAvailable (or MemFree) and MemTotal in bytes.
// Values above 4 GiB saturate.
func ParseMeminfo(r io.Reader) (free, total uint32, ok bool) {
	var avail, memFree, memTotal uint64
	var haveAvail, haveTotal bool

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		if len(fields) > 2 && fields[2] == "kB" {
			v *= 1024
		}
		switch fields[0] {
		case "MemTotal:":
			memTotal, haveTotal = v, true
		case "MemAvailable:":
			avail, haveAvail = v, true
		case "MemFree:":
			memFree = v
		}
	}
	if !haveTotal {
		return 0, 0, false
	}
	if !haveAvail {
		avail = memFree
	}
	return saturate(avail), saturate(memTotal), true
}

func runtimeMemory() (free, total uint32) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	used := ms.HeapInuse + ms.StackInuse
	if used > ms.Sys {
		used = ms.Sys
	}
	return saturate(ms.Sys - used), saturate(ms.Sys)
}

func saturate(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
