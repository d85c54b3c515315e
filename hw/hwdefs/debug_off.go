//go:build !busdebug

package hwdefs

const Debug = false
