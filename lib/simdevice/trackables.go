// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package simdevice

import (
	"math"
	"sync"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/meshcodec"
)

// Trackable churn. Every update adds one plane and grows the live
// ones; a plane is removed once maxLivePlanes newer ones exist. A
// single point cloud is added on the first update and refreshed after.
// Each mesh lives for meshLifetime updates and is removed when its
// successor is added.
const (
	maxLivePlanes    = 3
	pointCloudID     = 1
	pointCloudPoints = 48
	meshLifetime     = 4
	meshGrid         = 6 // vertices per side
)

type trackableSchedule struct {
	mu         sync.Mutex
	updates    uint64
	livePlanes []uint64
	liveMesh   uint64
}

// publishTrackables advances the churn schedule by one update and
// publishes the resulting changes. Empty changes are not published.
func (d *Device) publishTrackables() {
	schedule := &d.trackables
	schedule.mu.Lock()
	schedule.updates++
	update := schedule.updates

	var planes capture.TrackablesChanged[capture.Plane]
	for _, id := range schedule.livePlanes {
		planes.Updated = append(planes.Updated, makePlane(id, update))
	}
	schedule.livePlanes = append(schedule.livePlanes, update)
	planes.Added = append(planes.Added, makePlane(update, update))
	if excess := len(schedule.livePlanes) - maxLivePlanes; excess > 0 {
		for _, id := range schedule.livePlanes[:excess] {
			planes.Removed = append(planes.Removed, capture.Plane{TrackableID: id})
		}
		planes.Updated = planes.Updated[excess:]
		schedule.livePlanes = schedule.livePlanes[excess:]
	}

	clouds := capture.TrackablesChanged[capture.PointCloud]{}
	cloud := makePointCloud(update)
	if update == 1 {
		clouds.Added = append(clouds.Added, cloud)
	} else {
		clouds.Updated = append(clouds.Updated, cloud)
	}

	var meshes capture.MeshChanges
	meshID := (update-1)/meshLifetime + 1
	if meshID != schedule.liveMesh {
		if schedule.liveMesh != 0 {
			meshes.Removed = append(meshes.Removed, meshcodec.Mesh{FilterID: schedule.liveMesh})
		}
		meshes.Added = append(meshes.Added, makeMesh(meshID, update))
		schedule.liveMesh = meshID
	} else {
		meshes.Updated = append(meshes.Updated, makeMesh(meshID, update))
	}
	schedule.mu.Unlock()

	d.Planes.Publish(planes)
	d.PointClouds.Publish(clouds)
	d.Meshes.Publish(meshes)
}

// makePlane returns plane id as it looks at update: a horizontal
// floor patch whose extent grows by 10 cm per update since detection.
func makePlane(id, update uint64) capture.Plane {
	age := float32(update-id) + 1
	width, length := 0.5+0.1*age, 0.4+0.1*age
	center := frame.Vector3{X: float32(id%5) - 2, Y: 0, Z: float32(id%3) - 1}
	halfW, halfL := width/2, length/2
	return capture.Plane{
		TrackableID: id,
		Pose:        capture.Pose{Position: center, Rotation: frame.IdentityQuaternion},
		Center:      center,
		Normal:      frame.Vector3{Y: 1},
		Size:        frame.Vector2{X: width, Y: length},
		Alignment:   frame.PlaneAlignmentHorizontalUp,
		Boundary: []frame.Vector2{
			{X: -halfW, Y: -halfL},
			{X: halfW, Y: -halfL},
			{X: halfW, Y: halfL},
			{X: -halfW, Y: halfL},
		},
	}
}

// makePointCloud scatters points on a sphere whose radius breathes
// with update. Point identifiers are stable across updates.
func makePointCloud(update uint64) capture.PointCloud {
	radius := 1 + 0.2*math.Sin(float64(update)*0.3)
	cloud := capture.PointCloud{
		TrackableID: pointCloudID,
		Pose:        capture.Pose{Rotation: frame.IdentityQuaternion},
		Identifiers: make([]uint64, pointCloudPoints),
		Positions:   make([]frame.Vector3, pointCloudPoints),
		Confidences: make([]float32, pointCloudPoints),
	}
	// Golden-angle spiral for an even spread.
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range pointCloudPoints {
		y := 1 - 2*(float64(i)+0.5)/pointCloudPoints
		ring := math.Sqrt(1 - y*y)
		angle := golden * float64(i)
		cloud.Identifiers[i] = uint64(1000 + i)
		cloud.Positions[i] = frame.Vector3{
			X: float32(radius * ring * math.Cos(angle)),
			Y: float32(radius*y + walkHeight),
			Z: float32(radius * ring * math.Sin(angle)),
		}
		cloud.Confidences[i] = float32(i%4+1) / 4
	}
	return cloud
}

// makeMesh returns a wavy square grid split into two sub-meshes, the
// left and right halves.
func makeMesh(id, update uint64) meshcodec.Mesh {
	mesh := meshcodec.Mesh{FilterID: id}
	phase := float64(update) * 0.5
	for row := range meshGrid {
		for column := range meshGrid {
			x := float64(column) / (meshGrid - 1)
			z := float64(row) / (meshGrid - 1)
			height := 0.05 * math.Sin(2*math.Pi*x+phase)
			mesh.Vertices = append(mesh.Vertices, frame.Vector3{X: float32(x), Y: float32(height), Z: float32(z)})
			mesh.Normals = append(mesh.Normals, frame.Vector3{Y: 1})
		}
	}

	left, right := []uint32{}, []uint32{}
	for row := range meshGrid - 1 {
		for column := range meshGrid - 1 {
			a := uint32(row*meshGrid + column)
			b, c, d := a+1, a+meshGrid, a+meshGrid+1
			quad := []uint32{a, c, b, b, c, d}
			if column < (meshGrid-1)/2 {
				left = append(left, quad...)
			} else {
				right = append(right, quad...)
			}
		}
	}
	mesh.SubMeshes = [][]uint32{left, right}
	return mesh
}
