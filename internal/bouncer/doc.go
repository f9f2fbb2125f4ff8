// Package bouncer is the peer side of the lifeline protocol: it holds the
// upstream connection open on behalf of flaky clients. Each logical session
// owns one upstream connection and a bounded replay log of upstream bytes;
// a client that reconnects with {resume, ack} is replayed everything past its
// acknowledged offset. Losing the upstream is fatal for the session; losing
// the client is not.
package bouncer
