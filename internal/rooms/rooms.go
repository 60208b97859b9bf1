// Package rooms maps (kind, room id, channel) tuples to the canonical
// string keys used for subscription and broadcast. Everything here is a
// pure function; no room state lives in this package.
package rooms

import (
	"fmt"
	"strings"
)

// Kind is the closed set of room variants.
type Kind string

const (
	KindLesson  Kind = "lesson"
	KindCourse  Kind = "course"
	KindDM      Kind = "dm"
	KindPrivate Kind = "private"
)

// Separator joins the parts of composite room ids and canonical names.
const Separator = "_"

// DefaultChannel partitions course/lesson history when the client does
// not name a channel.
const DefaultChannel = "general"

// ParseKind validates a client-supplied kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLesson, KindCourse, KindDM, KindPrivate:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown room kind %q", s)
}

// Descriptor addresses one logical room. RoomId is the base id with any
// channel suffix already stripped; Channel is only meaningful for course
// and lesson rooms.
type Descriptor struct {
	Kind    Kind
	RoomId  string
	Channel string
}

// NewDescriptor builds a descriptor from a client-supplied room id.
//
// Course and lesson ids may carry a channel suffix in the form
// "base_channel"; the split is on the LAST separator, so a base id that
// itself contains the separator loses its tail to the channel. That is a
// documented property of the addressing convention, not a bug: callers
// minting course/lesson ids must not use the separator inside them.
// DM and private ids are never split (DM composites contain the
// separator by construction).
func NewDescriptor(kind Kind, roomId string) Descriptor {
	d := Descriptor{Kind: kind, RoomId: roomId, Channel: DefaultChannel}
	if kind != KindCourse && kind != KindLesson {
		d.Channel = ""
		return d
	}

	if i := strings.LastIndex(roomId, Separator); i > 0 && i < len(roomId)-1 {
		d.RoomId = roomId[:i]
		d.Channel = roomId[i+1:]
	}
	return d
}

// CanonicalName is the sole subscription/broadcast address for the room.
// Two descriptors produce the same canonical name iff they address the
// same logical room; the kind prefix keeps ids collision-free across
// kinds.
func (d Descriptor) CanonicalName() string {
	return string(d.Kind) + Separator + d.RoomId
}

// DMRoomId derives the canonical composite id for a two-party room. The
// participant ids are sorted lexicographically before joining, so both
// parties independently compute the same id regardless of who initiates.
func DMRoomId(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + Separator + userB
}

// NormalizeDMId canonicalizes a client-supplied dm room id. Clients may
// send either the peer's user id or a precomputed composite; both forms
// normalize to the sorted composite so every caller lands on the same
// canonical name. Ids splitting into more than two parts are passed
// through unchanged (user ids containing the separator already produce
// a sorted composite on the sending side).
func NormalizeDMId(selfId, raw string) string {
	parts := strings.Split(raw, Separator)
	switch len(parts) {
	case 1:
		return DMRoomId(selfId, raw)
	case 2:
		return DMRoomId(parts[0], parts[1])
	}
	return raw
}
