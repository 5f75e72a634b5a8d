package api

// MaxItemBodySize caps create and update bodies. Images may be sent inline as
// data URIs, so this is well above huma's 1 MiB default.
const MaxItemBodySize = 10 << 20
