package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"decisionmesh/internal/camera"
	"decisionmesh/internal/config"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/picking"
	"decisionmesh/internal/scene"
	"decisionmesh/internal/selection"
	"decisionmesh/internal/view"
)

func attachFakeSession(hub *Hub) *session {
	s := &session{
		id:     "fake",
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: zap.NewNop(),
	}
	hub.add(s)
	return s
}

func drain(s *session) []ServerMessage {
	var out []ServerMessage
	for {
		select {
		case data := <-s.send:
			var msg ServerMessage
			if err := json.Unmarshal(data, &msg); err == nil {
				out = append(out, msg)
			}
		default:
			return out
		}
	}
}

func testScene() *scene.Scene {
	entities := []mesh.Entity{
		{ID: "a", Label: "A", Category: mesh.CategoryCore, Tier: mesh.TierHigh},
		{ID: "b", Label: "B", Category: mesh.CategorySecurity, Tier: mesh.TierLow, Position: mesh.Vec3{X: 2}},
	}
	edges := []mesh.Edge{{SourceID: "a", TargetID: "b"}}
	return scene.NewBuilder(config.DefaultPalette(), 0.3).Build(entities, edges)
}

func testCamera() camera.Camera {
	return camera.Camera{Pose: camera.NewPose(10), FovY: 60, Aspect: 16.0 / 9.0, Near: 0.1, Far: 100}
}

func TestRemoteRenderer_UploadBroadcastsScene(t *testing.T) {
	hub := NewHub(nil)
	sess := attachFakeSession(hub)
	r := NewRemoteRenderer(hub, time.Millisecond)

	s := testScene()
	info := view.FrameInfo{
		Camera:   testCamera(),
		Viewport: picking.Viewport{Width: 1280, Height: 720},
		State:    selection.State{ActiveCategory: mesh.All, SelectedID: "a"},
	}
	require.NoError(t, r.Upload(s, info))

	msgs := drain(sess)
	require.Len(t, msgs, 1)
	assert.Equal(t, msgScene, msgs[0].Type)
	require.NotNil(t, msgs[0].Scene)

	got := msgs[0].Scene
	assert.Equal(t, []string{"a", "b"}, got.Buffers.IDs)
	assert.Len(t, got.Buffers.Transforms, 2*scene.TransformStride)
	assert.Equal(t, testCamera().ViewMatrix(), got.View)
	assert.Equal(t, info.Viewport, got.Viewport)
	assert.Equal(t, "a", got.State.SelectedID)

	want := view.NewSceneSnapshot(s, info)
	assert.Equal(t, want.Buffers.LinePositions, got.Buffers.LinePositions)
}

func TestRemoteRenderer_DrawThrottles(t *testing.T) {
	hub := NewHub(nil)
	sess := attachFakeSession(hub)
	r := NewRemoteRenderer(hub, 100*time.Millisecond)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	s := testScene()
	require.NoError(t, r.Upload(s, view.FrameInfo{Camera: testCamera()}))
	drain(sess)

	cam := testCamera()
	require.NoError(t, r.Draw(s, view.FrameInfo{Frame: 1, Camera: cam, Dirty: []int{1}}))
	assert.Equal(t, 1, r.Pushes())

	now = now.Add(10 * time.Millisecond)
	require.NoError(t, r.Draw(s, view.FrameInfo{Frame: 2, Camera: cam, Dirty: []int{0}}))
	assert.Equal(t, 1, r.Pushes(), "second draw inside the interval should be held back")

	now = now.Add(200 * time.Millisecond)
	require.NoError(t, r.Draw(s, view.FrameInfo{Frame: 3, Camera: cam}))
	assert.Equal(t, 2, r.Pushes())

	msgs := drain(sess)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[1].Frame)
	require.Len(t, msgs[1].Frame.Updates, 1)
	assert.Equal(t, "a", msgs[1].Frame.Updates[0].ID)
	assert.Empty(t, msgs[1].Frame.IDs, "unchanged lines are not resent")
}

func TestRemoteRenderer_SkipsIdleFrames(t *testing.T) {
	hub := NewHub(nil)
	sess := attachFakeSession(hub)
	r := NewRemoteRenderer(hub, 0)

	s := testScene()
	require.NoError(t, r.Upload(s, view.FrameInfo{Camera: testCamera()}))
	cam := testCamera()
	require.NoError(t, r.Draw(s, view.FrameInfo{Frame: 1, Camera: cam}))
	require.NoError(t, r.Draw(s, view.FrameInfo{Frame: 2, Camera: cam}))
	assert.Equal(t, 1, r.Pushes(), "only the first draw carries a new view matrix")

	require.NoError(t, r.Draw(s, view.FrameInfo{Frame: 3, Camera: cam, LinesDirty: true}))
	assert.Equal(t, 2, r.Pushes())

	msgs := drain(sess)
	last := msgs[len(msgs)-1]
	require.NotNil(t, last.Frame)
	assert.Equal(t, []string{"a", "b"}, last.Frame.IDs)
	assert.NotEmpty(t, last.Frame.LinePositions)
}

func TestRemoteRenderer_NoSessionsDropsPending(t *testing.T) {
	hub := NewHub(nil)
	r := NewRemoteRenderer(hub, 0)
	s := testScene()

	require.NoError(t, r.Draw(s, view.FrameInfo{Frame: 1, Camera: testCamera(), Dirty: []int{0, 1}}))
	assert.Equal(t, 0, r.Pushes())
	assert.Empty(t, r.pending)
}

func TestRemoteRenderer_ReleaseNotifiesSessions(t *testing.T) {
	hub := NewHub(nil)
	sess := attachFakeSession(hub)
	r := NewRemoteRenderer(hub, 0)

	r.Release()

	msgs := drain(sess)
	require.Len(t, msgs, 1)
	assert.Equal(t, msgReleased, msgs[0].Type)
}
