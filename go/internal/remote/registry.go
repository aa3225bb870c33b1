package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry is the cache of every remote the console has ever heard from,
// with its last reported battery level (nil until one arrives).
type Registry interface {
	IsKnown(id uint32) bool
	Add(id uint32) error
	UpdateBattery(id uint32, level uint8) error
	Snapshot() map[uint32]*uint8
}

type MemoryRegistry struct {
	mu      sync.RWMutex
	remotes map[uint32]*uint8
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{remotes: make(map[uint32]*uint8)}
}

func (r *MemoryRegistry) IsKnown(id uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.remotes[id]
	return ok
}

func (r *MemoryRegistry) Add(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.remotes[id]; !ok {
		r.remotes[id] = nil
	}
	return nil
}

func (r *MemoryRegistry) UpdateBattery(id uint32, level uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lvl := level
	r.remotes[id] = &lvl
	return nil
}

func (r *MemoryRegistry) Snapshot() map[uint32]*uint8 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint32]*uint8, len(r.remotes))
	for id, lvl := range r.remotes {
		if lvl == nil {
			out[id] = nil
			continue
		}
		v := *lvl
		out[id] = &v
	}
	return out
}

// FileRegistry is a MemoryRegistry that rewrites a JSON file on every change.
// The file maps "0x"-prefixed hex ids to battery levels or null.
type FileRegistry struct {
	mem  *MemoryRegistry
	path string
	mu   sync.Mutex
}

// OpenFileRegistry loads path if it exists. A missing or unreadable file
// starts an empty registry.
func OpenFileRegistry(path string) *FileRegistry {
	r := &FileRegistry{mem: NewMemoryRegistry(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("could not read remote registry, starting empty")
		}
		return r
	}

	var raw map[string]*uint8
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("corrupt remote registry, starting empty")
		return r
	}

	for key, lvl := range raw {
		id, err := parseRemoteKey(key)
		if err != nil {
			log.Warn().Str("key", key).Msg("skipping malformed remote registry key")
			continue
		}
		r.mem.remotes[id] = lvl
	}

	log.Info().Str("path", path).Int("remotes", len(r.mem.remotes)).Msg("loaded remote registry")
	return r
}

func (r *FileRegistry) IsKnown(id uint32) bool {
	return r.mem.IsKnown(id)
}

func (r *FileRegistry) Add(id uint32) error {
	if r.mem.IsKnown(id) {
		return nil
	}
	_ = r.mem.Add(id)
	return r.save()
}

func (r *FileRegistry) UpdateBattery(id uint32, level uint8) error {
	_ = r.mem.UpdateBattery(id, level)
	return r.save()
}

func (r *FileRegistry) Snapshot() map[uint32]*uint8 {
	return r.mem.Snapshot()
}

func (r *FileRegistry) save() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.mem.Snapshot()
	out := make(map[string]*uint8, len(snap))
	for id, lvl := range snap {
		out[RemoteKey(id)] = lvl
	}

	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal remote registry: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry directory: %w", err)
		}
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write remote registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace remote registry: %w", err)
	}
	return nil
}

// RemoteKey renders a remote id the way the registry file and the control
// surface key it.
func RemoteKey(id uint32) string {
	return "0x" + strconv.FormatUint(uint64(id), 16)
}

func parseRemoteKey(key string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(key), "0x"), 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// SortedIDs returns the ids of a registry snapshot in ascending order.
func SortedIDs(snap map[uint32]*uint8) []uint32 {
	ids := make([]uint32, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
