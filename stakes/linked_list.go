// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"github.com/ethereum/go-ethereum/common"
)

// linkedList keeps miners in enrolment order. The zero address terminates the
// list in both directions.
type linkedList struct {
	head  common.Address
	tail  common.Address
	count int
	next  map[common.Address]common.Address
	prev  map[common.Address]common.Address
}

func newLinkedList() *linkedList {
	return &linkedList{
		next: make(map[common.Address]common.Address),
		prev: make(map[common.Address]common.Address),
	}
}

// Add appends an address to the end of the list. Zero or already listed
// addresses are ignored.
func (l *linkedList) Add(address common.Address) {
	if address == (common.Address{}) || l.Contains(address) {
		return
	}
	if l.tail == (common.Address{}) {
		// the list is currently empty, set this entry to head & tail
		l.head = address
		l.tail = address
		l.count++
		return
	}
	l.next[l.tail] = address
	l.prev[address] = l.tail
	l.tail = address
	l.count++
}

// Remove unlinks an address from anywhere in the list.
func (l *linkedList) Remove(address common.Address) {
	if !l.Contains(address) {
		return
	}
	prev, next := l.prev[address], l.next[address]

	if prev != (common.Address{}) {
		l.setNext(prev, next)
	} else {
		l.head = next
	}
	if next != (common.Address{}) {
		l.setPrev(next, prev)
	} else {
		l.tail = prev
	}
	delete(l.next, address)
	delete(l.prev, address)
	l.count--
}

func (l *linkedList) setNext(addr, next common.Address) {
	if next == (common.Address{}) {
		delete(l.next, addr)
		return
	}
	l.next[addr] = next
}

func (l *linkedList) setPrev(addr, prev common.Address) {
	if prev == (common.Address{}) {
		delete(l.prev, addr)
		return
	}
	l.prev[addr] = prev
}

// Contains reports whether the address is listed.
func (l *linkedList) Contains(address common.Address) bool {
	if address == (common.Address{}) {
		return false
	}
	_, hasPrev := l.prev[address]
	return hasPrev || l.head == address
}

// Next returns the successor of address, the head for the zero address, and
// the zero address at the end of the list.
func (l *linkedList) Next(address common.Address) common.Address {
	if address == (common.Address{}) {
		return l.head
	}
	return l.next[address]
}

// Len returns the number of listed addresses.
func (l *linkedList) Len() int {
	return l.count
}

// Iter traverses the list in order until callback returns an error.
func (l *linkedList) Iter(callback func(common.Address) error) error {
	for ptr := l.head; ptr != (common.Address{}); ptr = l.next[ptr] {
		if err := callback(ptr); err != nil {
			return err
		}
	}
	return nil
}
