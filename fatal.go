// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"fmt"
	"runtime"
)

// panicInvariant reports a violation of a protocol invariant that the
// concurrency proof guarantees cannot happen — a lifecycle CAS that must
// succeed but doesn't, a destroy-before-drain on a LinkQueue, and similar.
// These indicate a bug in this package or undefined-behavior misuse by the
// caller (e.g. concurrent Clear, or a second reader on a single-reader
// LinkQueue); there is no recovery, so this panics with the call site's
// file and line, mirroring the ASSERT_LOG(file:line:func) diagnostic the
// algorithm was originally specified with.
func panicInvariant(format string, args ...any) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}
	msg := fmt.Sprintf(format, args...)
	panic(fmt.Sprintf("lfc: invariant violation at %s:%d: %s", file, line, msg))
}
