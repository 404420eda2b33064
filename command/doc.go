// Package command defines the in-process value contract between the client
// facade and the command server.
//
// A Command describes one requested operation; a Message describes one result
// or unsolicited event. Both are plain values: byte buffers are copied at the
// enqueue boundary and no engine pointer ever crosses in either direction,
// only opaque handles. Every variant carries a stable tag and a request id
// (zero for fire-and-forget commands and for unsolicited messages).
package command
