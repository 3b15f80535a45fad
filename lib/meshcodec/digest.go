// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package meshcodec

import "github.com/zeebo/blake3"

// subMeshDomainKey keys the BLAKE3 digest of uncompressed sub-mesh
// bytes: the ASCII domain name zero-padded to 32 bytes.
var subMeshDomainKey = [32]byte{
	'a', 'r', 'c', 'o', 'l', 'l', 'e', 'c', 't', '.', 'm', 'e', 's', 'h', '.',
	's', 'u', 'b', 'm', 'e', 's', 'h', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Digest returns the keyed BLAKE3 hash of an uncompressed sub-mesh
// serialization. It is computed over uncompressed bytes so it does
// not depend on which compression each section ended up with.
func Digest(sections ...[]byte) [32]byte {
	hasher, err := blake3.NewKeyed(subMeshDomainKey[:])
	if err != nil {
		// Only a wrong key length fails, and the key is fixed-size.
		panic("meshcodec: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	for _, section := range sections {
		hasher.Write(section)
	}
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}
