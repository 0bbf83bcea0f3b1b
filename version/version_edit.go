package version

import "filcache/sstable"

type VersionEdit struct {
	deletes []*TableMeta
	adds    []*TableMeta
}

type TableMeta struct {
	f     *FileMetaData
	level int
}

func NewVersionEdit() *VersionEdit {
	return &VersionEdit{
		deletes: make([]*TableMeta, 0),
		adds:    make([]*TableMeta, 0),
	}
}

func (ve *VersionEdit) RecordAddFileMeta(level int, t *sstable.Table) {
	fm := &FileMetaData{
		id:       t.Fid(),
		largest:  t.MaxKey,
		smallest: t.MinKey,
		fileSize: t.Size(),
	}
	ve.adds = append(ve.adds, &TableMeta{f: fm, level: level})
}

func (ve *VersionEdit) RecordDeleteFileMeta(level int, t *sstable.Table) {
	fm := &FileMetaData{
		id:       t.Fid(),
		largest:  t.MaxKey,
		smallest: t.MinKey,
		fileSize: t.Size(),
	}
	ve.deletes = append(ve.deletes, &TableMeta{f: fm, level: level})
}

func (ve *VersionEdit) DeleteFileMetas(level int, tables []*sstable.Table) {
	for _, table := range tables {
		ve.RecordDeleteFileMeta(level, table)
	}
}
