package main

// txQueueSize bounds the cantap tap's asynchronous frame-injection queue
// (internal/cantap/transport.AsyncTx), used only when the diagnostic tap is
// enabled. The engine's own bus traffic never goes through it.
const txQueueSize = 1024
