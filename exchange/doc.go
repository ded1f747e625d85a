/*
Package exchange implements the storm chunk exchange protocol.

A requester proposes a container, or a subset of its chunks, to a peer
believed to hold it. The holder answers with an offer naming the chunks
it can supply, the requester accepts, and the holder streams chunk
deliveries, each carrying a membership proof against the container id.
Verified chunks are committed to the local index as they arrive, so an
interrupted session resumes by re-proposing only what is still missing.

Major Dependencies

Other Repos:

https://github.com/filecoin-project/go-statemachine - a finite state machine that tracks session state
https://github.com/hannahhoward/go-pubsub - for pub/sub notifications external to the statemachine
https://github.com/jpillora/backoff - for stream open retries

IPFS Project Repos:

https://github.com/ipfs/go-datastore - for persisting statemachine state for sessions
https://github.com/ipfs/go-ipfs-blockstore - for storing and retrieving chunk data

libp2p Project Repos:

https://github.com/libp2p/go-libp2p - the network over which chunk data is exchanged

This top level package defines top level enumerations and interfaces. The primary implementation
lives in the `impl` directory
*/
package exchange
