package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"lesson", "course", "dm", "private"} {
		k, err := ParseKind(valid)
		assert.NoError(t, err, "expected %q to parse", valid)
		assert.Equal(t, Kind(valid), k)
	}

	_, err := ParseKind("channel")
	assert.Error(t, err, "expected unknown kind to be rejected")
}

func TestNewDescriptor(t *testing.T) {
	tcases := []struct {
		name            string
		kind            Kind
		roomId          string
		expectedRoomId  string
		expectedChannel string
	}{
		{
			name:            "course without channel suffix",
			kind:            KindCourse,
			roomId:          "fx-101",
			expectedRoomId:  "fx-101",
			expectedChannel: "general",
		},
		{
			name:            "course with channel suffix",
			kind:            KindCourse,
			roomId:          "fx-101_homework",
			expectedRoomId:  "fx-101",
			expectedChannel: "homework",
		},
		{
			name:            "split is on the last separator",
			kind:            KindLesson,
			roomId:          "intro_week1_qa",
			expectedRoomId:  "intro_week1",
			expectedChannel: "qa",
		},
		{
			name:            "trailing separator is not a channel",
			kind:            KindCourse,
			roomId:          "fx-101_",
			expectedRoomId:  "fx-101_",
			expectedChannel: "general",
		},
		{
			name:            "leading separator is not a channel",
			kind:            KindCourse,
			roomId:          "_general",
			expectedRoomId:  "_general",
			expectedChannel: "general",
		},
		{
			name:            "dm composite ids are never split",
			kind:            KindDM,
			roomId:          "alice_bob",
			expectedRoomId:  "alice_bob",
			expectedChannel: "",
		},
		{
			name:            "private slugs are never split",
			kind:            KindPrivate,
			roomId:          "study_group",
			expectedRoomId:  "study_group",
			expectedChannel: "",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDescriptor(tc.kind, tc.roomId)
			assert.Equal(t, tc.expectedRoomId, d.RoomId, "expected base room id to match")
			assert.Equal(t, tc.expectedChannel, d.Channel, "expected channel to match")
		})
	}
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "course_fx-101", NewDescriptor(KindCourse, "fx-101").CanonicalName())
	assert.Equal(t, "dm_alice_bob", NewDescriptor(KindDM, "alice_bob").CanonicalName())

	// kind prefix keeps identical ids in different kinds distinct
	course := NewDescriptor(KindCourse, "abc").CanonicalName()
	lesson := NewDescriptor(KindLesson, "abc").CanonicalName()
	assert.NotEqual(t, course, lesson, "expected canonical names to differ across kinds")

	// channel does not change the broadcast address
	assert.Equal(t,
		NewDescriptor(KindCourse, "fx-101").CanonicalName(),
		NewDescriptor(KindCourse, "fx-101_homework").CanonicalName(),
		"expected channel suffix not to change the canonical name")
}

func TestDMRoomId(t *testing.T) {
	assert.Equal(t, DMRoomId("alice", "bob"), DMRoomId("bob", "alice"),
		"expected dm room id to be symmetric")
	assert.Equal(t, "alice_bob", DMRoomId("bob", "alice"))
	assert.Equal(t, "a_a", DMRoomId("a", "a"))
}
