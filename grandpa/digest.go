package grandpa

// Codec decodes the opaque payloads of GRANDPA-tagged digest entries. It is
// supplied by the caller; the digest wire format itself is outside this
// component's scope. A decode attempt that fails (ok == false) on an
// entry that simply isn't that variant is forward-compatible noise, never an
// error.
type Codec interface {
	DecodeScheduledChange(payload []byte) (ScheduledChange, bool)
	DecodeForcedChange(payload []byte) (ForcedChange, bool)
}

// ScanHeader extracts at most one ScheduledChange and one ForcedChange from a
// header's consensus digest. Only entries tagged with the GRANDPA
// engine ID are inspected; the first matching entry of each kind wins. A
// header may carry both, independently; precedence between them is resolved
// later, during change resolution, not here.
func ScanHeader(h *Header, codec Codec) (scheduled *ScheduledChange, forced *ForcedChange) {
	for _, item := range h.Digest {
		if item.Engine != GrandpaEngineID {
			continue
		}
		if forced == nil {
			if fc, ok := codec.DecodeForcedChange(item.Payload); ok {
				forced = &fc
				if scheduled != nil {
					break
				}
				continue
			}
		}
		if scheduled == nil {
			if sc, ok := codec.DecodeScheduledChange(item.Payload); ok {
				scheduled = &sc
				if forced != nil {
					break
				}
			}
		}
	}
	return scheduled, forced
}
