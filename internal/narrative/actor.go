package narrative

import (
	"fmt"
	"strconv"
)

type actorKind uint8

const (
	actorNone actorKind = iota
	actorObject
	actorOpaque
)

// ActorRef 标识事件的发起者：数字对象号或不透明的 uuid 标识，二者只能取其一。
type ActorRef struct {
	kind  actorKind
	oid   int64
	token string
}

// NoActor 表示没有发起者信息。
func NoActor() ActorRef { return ActorRef{} }

// ByObjectID 以数字对象号标识发起者。
func ByObjectID(oid int64) ActorRef {
	return ActorRef{kind: actorObject, oid: oid}
}

// ByOpaqueID 以不透明标识（如 uuid）标识发起者。空串视为无发起者。
func ByOpaqueID(token string) ActorRef {
	if token == "" {
		return NoActor()
	}
	return ActorRef{kind: actorOpaque, token: token}
}

// IsZero reports whether the reference carries no actor.
func (a ActorRef) IsZero() bool { return a.kind == actorNone }

// ObjectID returns the numeric object id when the ref is object-based.
func (a ActorRef) ObjectID() (int64, bool) {
	return a.oid, a.kind == actorObject
}

// OpaqueID returns the opaque token when the ref is token-based.
func (a ActorRef) OpaqueID() (string, bool) {
	return a.token, a.kind == actorOpaque
}

// Equal 仅在两侧表示形式相同且取值相等时为真；两侧都为空也视为相等。
func (a ActorRef) Equal(b ActorRef) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case actorObject:
		return a.oid == b.oid
	case actorOpaque:
		return a.token == b.token
	default:
		return true
	}
}

func (a ActorRef) String() string {
	switch a.kind {
	case actorObject:
		return "#" + strconv.FormatInt(a.oid, 10)
	case actorOpaque:
		return fmt.Sprintf("uuid:%s", a.token)
	default:
		return ""
	}
}

// SameActor 比较两个事件 metadata 中的发起者。
// 一侧有发起者而另一侧没有时视为不同。
func SameActor(a, b Event) bool {
	return a.Actor().Equal(b.Actor())
}
