package swarm

import "github.com/netabase/netabase/internal/broadcast"

// Event is the swarm package's name for a broadcast network event, so
// callers of Subscribe don't need to import internal/broadcast directly.
type Event = broadcast.Event
