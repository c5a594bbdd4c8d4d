// Package session keeps per-client state across HTTP requests on top of
// alexedwards/scs.
//
// Manager embeds an scs.SessionManager and wraps its LoadAndSave middleware
// with a Locker, so requests carrying the same session token run one at a time
// from load to commit. MemoryLocker serves a single process and RedisLocker a
// fleet sharing one Redis. Stores are scs stores: memstore, or goredisstore
// through NewRedisStore. SignedCodec encodes records as HS512 JWTs.
package session
