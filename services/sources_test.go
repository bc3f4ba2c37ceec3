package services

import (
	"reflect"
	"testing"
)

func TestSourceOrderSort(t *testing.T) {
	o := NewSourceOrder([]string{"LaptopClinic", "jumia", "masoko", "jumia"})

	got := []string{"zzz", "masoko", "aaa", "jumia", "laptopclinic"}
	o.Sort(got)

	want := []string{"laptopclinic", "jumia", "masoko", "aaa", "zzz"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sort = %v; want %v", got, want)
	}
	if o.Rank("unknown-shop") != 3 {
		t.Errorf("unknown source rank = %d; want 3", o.Rank("unknown-shop"))
	}
}
