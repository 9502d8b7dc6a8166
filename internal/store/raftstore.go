package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/heysubinoy/kvweb/pkg/kv"
)

const (
	opSet    = "set"
	opDelete = "delete"
)

// RaftCommand represents a set/delete operation to be applied via Raft.
type RaftCommand struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// RaftStore wraps a MemStore and applies changes via Raft consensus.
// Reads are served from the local copy.
type RaftStore struct {
	store   *MemStore
	raft    *raft.Raft
	closers []io.Closer
}

var (
	_ kv.Store = (*RaftStore)(nil)
	_ raft.FSM = (*RaftStore)(nil)
)

// RaftOptions configures a disk-backed raft node.
type RaftOptions struct {
	NodeID string
	// Addr is the bind and advertise address; it must be reachable by peers.
	Addr string
	Dir  string
	// Bootstrap forms a single-node cluster when the node has no prior state.
	Bootstrap bool
	LogOutput io.Writer
}

// NewRaftStore returns an FSM over store. Call Start before use.
func NewRaftStore(store *MemStore) *RaftStore {
	return &RaftStore{store: store}
}

// OpenRaftStore starts a raft node persisting its log in a bolt file and its
// snapshots in opts.Dir.
func OpenRaftStore(opts RaftOptions) (*RaftStore, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create raft directory %q: %w", opts.Dir, err)
	}

	boltStore, err := raftboltdb.NewBoltStore(filepath.Join(opts.Dir, "raft.db"))
	if err != nil {
		return nil, fmt.Errorf("could not open raft log store: %w", err)
	}
	snaps, err := raft.NewFileSnapshotStore(opts.Dir, 2, opts.LogOutput)
	if err != nil {
		_ = boltStore.Close()
		return nil, fmt.Errorf("could not open raft snapshot store: %w", err)
	}
	advertise, err := net.ResolveTCPAddr("tcp", opts.Addr)
	if err != nil {
		_ = boltStore.Close()
		return nil, fmt.Errorf("invalid raft address %q: %w", opts.Addr, err)
	}
	trans, err := raft.NewTCPTransport(opts.Addr, advertise, 3, 10*time.Second, opts.LogOutput)
	if err != nil {
		_ = boltStore.Close()
		return nil, fmt.Errorf("could not start raft transport: %w", err)
	}

	conf := raft.DefaultConfig()
	conf.LocalID = raft.ServerID(opts.NodeID)
	conf.LogOutput = opts.LogOutput

	rs := NewRaftStore(NewMemStore())
	rs.closers = append(rs.closers, trans, boltStore)
	if err := rs.Start(conf, boltStore, boltStore, snaps, trans, opts.Bootstrap); err != nil {
		_ = rs.closeResources()
		return nil, err
	}
	return rs, nil
}

// Start creates the raft node, bootstrapping a single-node cluster first if
// asked to and there is no existing state.
func (rs *RaftStore) Start(conf *raft.Config, logs raft.LogStore, stable raft.StableStore, snaps raft.SnapshotStore, trans raft.Transport, bootstrap bool) error {
	if bootstrap {
		hasState, err := raft.HasExistingState(logs, stable, snaps)
		if err != nil {
			return fmt.Errorf("could not inspect raft state: %w", err)
		}
		if !hasState {
			cluster := raft.Configuration{
				Servers: []raft.Server{{ID: conf.LocalID, Address: trans.LocalAddr()}},
			}
			if err := raft.BootstrapCluster(conf, logs, stable, snaps, trans, cluster); err != nil {
				return fmt.Errorf("could not bootstrap raft cluster: %w", err)
			}
		}
	}

	r, err := raft.NewRaft(conf, rs, logs, stable, snaps, trans)
	if err != nil {
		return fmt.Errorf("could not start raft: %w", err)
	}
	rs.raft = r
	return nil
}

// WaitForLeader blocks until the node knows of a leader or timeout elapses.
func (rs *RaftStore) WaitForLeader(timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-deadline.C:
			return errors.New("timed out waiting for a raft leader")
		case <-tick.C:
			if addr, _ := rs.raft.LeaderWithID(); addr != "" {
				return nil
			}
		}
	}
}

// Apply applies a Raft log entry to the local store. Delete entries respond
// with whether the key existed.
func (rs *RaftStore) Apply(log *raft.Log) interface{} {
	var cmd RaftCommand
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return err
	}
	ctx := context.Background()
	switch cmd.Op {
	case opSet:
		return rs.store.Set(ctx, cmd.Key, cmd.Value)
	case opDelete:
		existed, _ := rs.store.Delete(ctx, cmd.Key)
		return existed
	}
	return fmt.Errorf("unknown raft command %q", cmd.Op)
}

func (rs *RaftStore) Snapshot() (raft.FSMSnapshot, error) {
	return &mapSnapshot{data: rs.store.copyData()}, nil
}

func (rs *RaftStore) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	data := make(map[string]string)
	if err := json.NewDecoder(rc).Decode(&data); err != nil {
		return fmt.Errorf("could not decode raft snapshot: %w", err)
	}
	rs.store.replace(data)
	return nil
}

type mapSnapshot struct {
	data map[string]string
}

func (s *mapSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s.data); err != nil {
		_ = sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *mapSnapshot) Release() {}

func (rs *RaftStore) apply(cmd RaftCommand) (interface{}, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	f := rs.raft.Apply(data, 0)
	if err := f.Error(); err != nil {
		return nil, err
	}
	resp := f.Response()
	if err, ok := resp.(error); ok {
		return nil, err
	}
	return resp, nil
}

// Set submits a set command to Raft.
func (rs *RaftStore) Set(_ context.Context, key, value string) error {
	_, err := rs.apply(RaftCommand{Op: opSet, Key: key, Value: value})
	return err
}

// Delete submits a delete command to Raft.
func (rs *RaftStore) Delete(_ context.Context, key string) (bool, error) {
	resp, err := rs.apply(RaftCommand{Op: opDelete, Key: key})
	if err != nil {
		return false, err
	}
	existed, _ := resp.(bool)
	return existed, nil
}

// Get reads directly from the local store.
func (rs *RaftStore) Get(ctx context.Context, key string) (string, bool, error) {
	return rs.store.Get(ctx, key)
}

func (rs *RaftStore) Keys(ctx context.Context) ([]string, error) {
	return rs.store.Keys(ctx)
}

func (rs *RaftStore) Close() error {
	var errs []error
	if rs.raft != nil {
		errs = append(errs, rs.raft.Shutdown().Error())
	}
	errs = append(errs, rs.closeResources())
	return errors.Join(errs...)
}

func (rs *RaftStore) closeResources() error {
	var errs []error
	for _, c := range rs.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
