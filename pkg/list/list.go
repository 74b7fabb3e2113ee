// Package list provides an intrusive doubly linked list.
//
// The link fields live inside the item itself, so pushing and removing never
// allocate. A list is constructed with an accessor that returns the embedded
// [Link] of an item; the same item type may carry several links and sit on
// several lists at once, one per link.
//
//	type job struct {
//	    id   int
//	    link list.Link[job]
//	}
//
//	l := list.New(func(j *job) *list.Link[job] { return &j.link })
//	_ = l.PushBack(&job{id: 1})
//
// A List is not safe for concurrent use; callers provide their own locking.
package list

import "errors"

var (
	// ErrLinked is returned when an item is pushed while it is already on a list.
	ErrLinked = errors.New("list: item already linked")

	// ErrNotLinked is returned when an item is removed from a list it is not on.
	ErrNotLinked = errors.New("list: item not linked to this list")
)

// Link is the intrusive link embedded in an item. The zero value is an
// unlinked link.
type Link[T any] struct {
	prev, next *T
	owner      *List[T]
}

// Linked reports whether the link is currently on a list.
func (l *Link[T]) Linked() bool {
	return l.owner != nil
}

// List is a doubly linked list of *T.
type List[T any] struct {
	head, tail *T
	n          int
	link       func(*T) *Link[T]
}

// New returns an empty list that reaches each item's link through link.
// It panics if link is nil.
func New[T any](link func(*T) *Link[T]) *List[T] {
	if link == nil {
		panic("list: nil link accessor")
	}
	return &List[T]{link: link}
}

// Len returns the number of items on the list.
func (l *List[T]) Len() int { return l.n }

// Empty reports whether the list has no items.
func (l *List[T]) Empty() bool { return l.n == 0 }

// Front returns the first item, or nil.
func (l *List[T]) Front() *T { return l.head }

// Back returns the last item, or nil.
func (l *List[T]) Back() *T { return l.tail }

// Next returns the item after item, or nil if item is last or not on l.
func (l *List[T]) Next(item *T) *T {
	lk := l.link(item)
	if lk.owner != l {
		return nil
	}
	return lk.next
}

// Prev returns the item before item, or nil if item is first or not on l.
func (l *List[T]) Prev(item *T) *T {
	lk := l.link(item)
	if lk.owner != l {
		return nil
	}
	return lk.prev
}

// Contains reports whether item is on l.
func (l *List[T]) Contains(item *T) bool {
	return item != nil && l.link(item).owner == l
}

// PushBack appends item at the tail.
func (l *List[T]) PushBack(item *T) error {
	lk := l.link(item)
	if lk.owner != nil {
		return ErrLinked
	}
	lk.owner = l
	lk.prev = l.tail
	lk.next = nil
	if l.tail != nil {
		l.link(l.tail).next = item
	} else {
		l.head = item
	}
	l.tail = item
	l.n++
	return nil
}

// PushFront inserts item at the head.
func (l *List[T]) PushFront(item *T) error {
	lk := l.link(item)
	if lk.owner != nil {
		return ErrLinked
	}
	lk.owner = l
	lk.prev = nil
	lk.next = l.head
	if l.head != nil {
		l.link(l.head).prev = item
	} else {
		l.tail = item
	}
	l.head = item
	l.n++
	return nil
}

// Remove unlinks item from l.
func (l *List[T]) Remove(item *T) error {
	lk := l.link(item)
	if lk.owner != l {
		return ErrNotLinked
	}
	if lk.prev != nil {
		l.link(lk.prev).next = lk.next
	} else {
		l.head = lk.next
	}
	if lk.next != nil {
		l.link(lk.next).prev = lk.prev
	} else {
		l.tail = lk.prev
	}
	*lk = Link[T]{}
	l.n--
	return nil
}

// PopFront unlinks and returns the first item, or nil if the list is empty.
func (l *List[T]) PopFront() *T {
	item := l.head
	if item == nil {
		return nil
	}
	_ = l.Remove(item)
	return item
}

// Each calls fn for every item from head to tail until fn returns false.
// fn must not modify the list.
func (l *List[T]) Each(fn func(*T) bool) {
	for item := l.head; item != nil; item = l.link(item).next {
		if !fn(item) {
			return
		}
	}
}
