// Package configserver serves the network document over a small HTTP/1.1
// subset written directly against net.Conn.
//
// Routes:
//
//	GET  /, /index  static editor page
//	GET  /config    the document bytes exactly as stored
//	POST /config    replace the document, then run a setup cycle
//
// Anything else is 404. Requests are read one connection at a time: the
// accept loop handles a connection to completion before accepting the next,
// and polls its enabled flag between accepts so Stop takes effect within
// one accept timeout.
//
// When a password is configured every request needs
// "Authorization: Basic base64(admin:<password>)". The password may be
// stored as plaintext or as an argon2id string.
package configserver
