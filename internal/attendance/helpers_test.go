package attendance

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// 2024-03-04 is a Monday.
func monday(h, m, s int) time.Time {
	return time.Date(2024, time.March, 4, h, m, s, 0, time.UTC)
}

var wholeImage = facematch.DetectorFunc(func(img image.Image) []image.Rectangle {
	return []image.Rectangle{img.Bounds()}
})

func stripes(t *testing.T) *image.Gray {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := range 100 {
		for x := range 100 {
			if (y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func noise(t *testing.T, seed int64) *image.Gray {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func addStudent(t *testing.T, store *mock.MockStore, id string) {
	t.Helper()
	if err := store.CreateStudent(context.Background(), &database.Student{StudentID: id, Name: id}); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
}

func addCourse(t *testing.T, store *mock.MockStore, name string, day time.Weekday, start, end schedule.ClockTime, students ...string) int64 {
	t.Helper()
	ctx := context.Background()
	c := database.Course{Name: name, Weekday: day.String(), Start: start, End: end}
	if err := store.CreateCourse(ctx, &c); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	for _, s := range students {
		if err := store.Enroll(ctx, s, c.ID); err != nil {
			t.Fatalf("Enroll: %v", err)
		}
	}
	return c.ID
}
