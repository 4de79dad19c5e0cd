package narrative

import "testing"

func TestActorRefEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b ActorRef
		want bool
	}{
		{name: "both absent", a: NoActor(), b: NoActor(), want: true},
		{name: "same oid", a: ByObjectID(12), b: ByObjectID(12), want: true},
		{name: "different oid", a: ByObjectID(12), b: ByObjectID(13), want: false},
		{name: "same token", a: ByOpaqueID("abc"), b: ByOpaqueID("abc"), want: true},
		{name: "oid vs token", a: ByObjectID(12), b: ByOpaqueID("12"), want: false},
		{name: "one side absent", a: ByObjectID(12), b: NoActor(), want: false},
		{name: "empty token is absent", a: ByOpaqueID(""), b: NoActor(), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal(%v,%v)=%v want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Fatalf("Equal is not symmetric for %v,%v", tt.a, tt.b)
			}
		})
	}
}

func TestSameHintGroup(t *testing.T) {
	say := func(id string, actor ActorRef) Event {
		return Event{
			ID:               id,
			PresentationHint: HintSpeechBubble,
			GroupID:          "g1",
			Metadata:         &Metadata{Actor: actor, ActorName: "Ann", Content: id},
		}
	}

	if !SameHintGroup(say("a", ByObjectID(1)), say("b", ByObjectID(1))) {
		t.Fatalf("expected same hint group for same actor")
	}
	if SameHintGroup(say("a", ByObjectID(1)), say("b", ByObjectID(2))) {
		t.Fatalf("different actors must not share a hint group")
	}

	noHint := Event{ID: "x"}
	if SameHintGroup(noHint, noHint) {
		t.Fatalf("events without a hint never form a hint group")
	}

	otherGroup := say("c", ByObjectID(1))
	otherGroup.GroupID = "g2"
	if SameHintGroup(say("a", ByObjectID(1)), otherGroup) {
		t.Fatalf("different group ids must not share a hint group")
	}

	bare := say("d", NoActor())
	bare.Metadata = nil
	if SameHintGroup(say("a", ByObjectID(1)), bare) {
		t.Fatalf("actor on one side only must stop the run")
	}
}

func TestEventIsLook(t *testing.T) {
	evt := Event{
		PresentationHint: HintInset,
		Metadata:         &Metadata{Verb: "look", DobjName: "lamp"},
	}
	if !evt.IsLook() {
		t.Fatalf("expected look event")
	}
	evt.Metadata.DobjName = " "
	if evt.IsLook() {
		t.Fatalf("look without a target name is not collapsible")
	}
}
