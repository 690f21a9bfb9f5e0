package pinvault

import "time"

func SetSignerClock(s *Signer, now func() time.Time) { s.now = now }

func SetVerifierClock(v *SignatureVerifier, now func() time.Time) { v.now = now }
