package sampler

import "codeberg.org/mutker/sysmon/internal/textparse"

// sampleMemory derives the RAM figures from /proc/meminfo. Keys the kernel
// does not report count as -1.
func (s *System) sampleMemory() {
	if s.procMeminfo == nil {
		return
	}

	n, err := s.procMeminfo.ReadAll(&s.buf)
	if err != nil {
		s.opts.log.Debug().Err(err).Msg("read meminfo")
		return
	}

	table := textparse.ParseKeyValueTable(string(s.buf[:n]))
	get := func(key string) int64 {
		if v, ok := table[key]; ok {
			return v
		}
		return -1
	}

	totalUsed := get("MemTotal") - get("MemFree")
	cached := get("Cached") + get("SReclaimable") - get("Shmem")
	used := totalUsed - get("Buffers") - cached

	s.RAMUsed = used * 1024
	s.RAMBuffers = get("Buffers") * 1024
	s.RAMCached = cached * 1024
}
