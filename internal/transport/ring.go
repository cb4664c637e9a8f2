package transport

import (
	"fmt"
)

const (
	tpacketAlignment = 16
	tpacketHdrLen    = 52 // TPACKET3_HDRLEN, rounded
	maxBlockSize     = 4 * 1024 * 1024
)

// recomputeSize derives a TPACKET_V3 ring layout for a buffer of bufferMB megabytes.
//
// AF_PACKET PACKET_MMAP requires:
//  1. frameSize is a multiple of TPACKET_ALIGNMENT (16 bytes)
//  2. blockSize is a multiple of pageSize
//  3. blockSize is a multiple of frameSize
//  4. blockSize * numBlocks approximates bufferSizeMB
func recomputeSize(bufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if bufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("bufferSizeMB must be positive, got %d", bufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snapLen must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("pageSize must be positive and multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	targetBytes := bufferSizeMB * 1024 * 1024

	frameSize = alignUp(tpacketHdrLen+snapLen, tpacketAlignment)
	if frameSize > pageSize {
		frameSize = alignUp(frameSize, pageSize)
	} else {
		frameSize = fitPage(frameSize, pageSize)
	}

	// One of frameSize/pageSize divides the other, so the LCM is the larger
	// one. Doubling keeps both divisibility rules.
	blockSize = lcm(pageSize, frameSize)
	for blockSize*2 <= maxBlockSize && blockSize*2 <= targetBytes {
		blockSize *= 2
	}

	numBlocks = targetBytes / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

// fitPage returns the smallest aligned divisor of pageSize that holds size bytes.
func fitPage(size, pageSize int) int {
	for n := pageSize / size; n > 1; n-- {
		if pageSize%n == 0 && (pageSize/n)%tpacketAlignment == 0 {
			return pageSize / n
		}
	}
	return pageSize
}

func alignUp(n, align int) int {
	return ((n + align - 1) / align) * align
}

// gcd computes the greatest common divisor of two integers
func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return (a / gcd(a, b)) * b
}
