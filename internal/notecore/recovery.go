package notecore

import "fmt"

// Core bundles the components built on the ports (queue, registry,
// sync-tag manager, guard, coordinator, processor, online state) and the
// event bus they share, so a composition root can wire and recover them
// as one unit.
type Core struct {
	Queue       *Queue
	Registry    *Registry
	SyncTag     *SyncTagManager
	Guard       *Guard
	Coordinator *Coordinator
	Processor   *Processor
	Online      *OnlineState
	Events      *EventBus
}

// NewCore wires the components together: Queue and Registry over
// store, Guard over Queue and the Coordinator's active-editing state,
// Coordinator and Processor cross-wired through SetProcessor/
// SetCoordinator to avoid a constructor cycle (§9).
func NewCore(store PersistencePort, remote RemoteAPIPort, clock ClockPort, cfg QueueConfig) (*Core, error) {
	if clock == nil {
		clock = SystemClock{}
	}

	events := NewEventBus()
	online := NewOnlineState(events)

	queue, err := NewQueue(store, clock, cfg)
	if err != nil {
		return nil, fmt.Errorf("notecore: build queue: %w", err)
	}
	registry := NewRegistry(store, queue, clock, events)
	synctag := NewSyncTagManager(store, clock)

	coord := NewCoordinator(store, queue, nil, online, clock)
	guard := NewGuard(queue, coord)
	coord.guard = guard

	proc := NewProcessor(queue, registry, synctag, remote, online, events)
	proc.SetCoordinator(coord)
	coord.SetProcessor(proc)

	return &Core{
		Queue:       queue,
		Registry:    registry,
		SyncTag:     synctag,
		Guard:       guard,
		Coordinator: coord,
		Processor:   proc,
		Online:      online,
		Events:      events,
	}, nil
}

// Recover drives startup recovery: the Queue has already rehydrated its
// index from store in NewQueue, so the only remaining step is replaying
// any id mapping that did not finish reconciling before a prior process
// exited (§4.E recoverIncomplete, §5 idempotent-on-replay).
func (c *Core) Recover() error {
	if err := c.Registry.RecoverIncomplete(); err != nil {
		return fmt.Errorf("notecore: recover: %w", err)
	}
	return nil
}
