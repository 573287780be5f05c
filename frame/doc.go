// Package frame locates values inside a zend_execute_data call frame.
//
// The engine lays out a call frame as a fixed header followed by argument
// zval slots. The number of slots the header occupies is
//
//	(ZEND_MM_ALIGNED_SIZE(sizeof(zend_execute_data)) +
//	 ZEND_MM_ALIGNED_SIZE(sizeof(zval)) - 1) / ZEND_MM_ALIGNED_SIZE(sizeof(zval))
//
// and argument n lives at base + (slots + n) * sizeof(zval). SlotResolver
// evaluates this once per profile. ExecuteData is a non-owning cursor over a
// frame the host built.
//
// The argument count is not exposed here. Reading past the last argument is
// the caller's error and yields whatever the slot holds.
package frame
