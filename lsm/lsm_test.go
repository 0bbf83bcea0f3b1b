package lsm

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"filcache/utils"
	"filcache/utils/cmp"
)

var opt = utils.DefaultOptions("../work_test")

func TestLSM_Set(t *testing.T) {
	clearDir()
	lsm := NewLSM(opt)
	defer lsm.Close()

	e := &utils.Entry{
		Key:       []byte("TBS😁数据库🐧🐧🐧🐂🍃🐎🏀🍎"),
		Value:     []byte("KV入门◀◘◙█Ε｡.:*❉ﾟ･*:.｡.｡.:*･゜❆ﾟ･*｡.:*❉ﾟ･*:.｡.｡.★═━┈┈ ☆══━━─－－　☆══━━─－"),
		ExpiresAt: 123,
	}
	lsm.Set(e)

	for i := 1; i < 100; i++ {
		e := utils.BuildEntry()
		lsm.Set(e)
		v, err := lsm.Get(e.Key)
		if err != nil {
			panic(err)
		}
		assert.Equal(t, e.Value, v.Value)
	}
	fmt.Println(lsm.memTable.Size() / 1024)
}

func TestLSM_CRUD(t *testing.T) {
	clearDir()
	comparable := cmp.IntComparator{}
	opt.Comparable = comparable
	lsm := NewLSM(opt)
	defer lsm.Close()

	for i := 0; i < 5000; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%d", i)),
			Value: []byte(fmt.Sprintf("%d", i)),
		}
		lsm.Set(e)
	}

	for i := 0; i < 5000; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%d", i)),
			Value: []byte(fmt.Sprintf("%d", i)),
		}
		v, err := lsm.Get(e.Key)
		if err != nil {
			panic(err)
		}
		assert.Equal(t, e.Value, v.Value)
	}
}

func TestLSM_Concurrent(t *testing.T) {
	clearDir()
	comparable := cmp.IntComparator{}
	opt.Comparable = comparable
	lsm := NewLSM(opt)
	defer lsm.Close()
	var wg sync.WaitGroup
	wg.Add(5)

	adder := func(begin, end int, wg *sync.WaitGroup) {
		defer wg.Done()
		for i := begin; i < end; i++ {
			e := &utils.Entry{
				Key:   []byte(fmt.Sprintf("%d", i)),
				Value: []byte(fmt.Sprintf("%d", i)),
			}
			lsm.Set(e)
		}
	}
	go adder(0, 1000, &wg)
	go adder(1000, 2000, &wg)
	go adder(2000, 3000, &wg)
	go adder(3000, 4000, &wg)
	go adder(2500, 5000, &wg)

	wg.Wait()

	for i := 0; i < 5000; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%d", i)),
			Value: []byte(fmt.Sprintf("%d", i)),
		}
		v, err := lsm.Get(e.Key)
		if err != nil {
			panic(err)
		}
		assert.Equal(t, e.Value, v.Value)
	}
}

func TestWAL(t *testing.T) {
	clearDir()
	lsm := NewLSM(opt)
	defer lsm.Close()

	for i := 0; i < 5000; i++ {
		e := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%d", i)),
			Value: []byte(fmt.Sprintf("%d", i)),
		}
		lsm.Set(e)
	}
	for i := 0; i < 5000; i++ {
		ee := &utils.Entry{
			Key:   []byte(fmt.Sprintf("%d", i)),
			Value: []byte(fmt.Sprintf("%d", i)),
		}
		v, err := lsm.Get(ee.Key)
		if err != nil {
			panic(err)
		}
		assert.Equal(t, ee.Value, v.Value)
	}
}

func clearDir() {
	_, err := os.Stat(opt.WorkDir)
	if err == nil {
		os.RemoveAll(opt.WorkDir)
	}
	os.Mkdir(opt.WorkDir, os.ModePerm)
}
