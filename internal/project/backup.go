package project

// SaveBackupFile writes a copy of the current project to
// "<project>.subtrans-backup". ReadProjectFile calls this exactly once
// per load of an existing project file, before anything in the tree can
// be mutated, per spec.md §4.7.
func (p *Project) SaveBackupFile() error {
	p.mu.Lock()
	subs := p.subtitles
	projectFile := p.projectFile
	p.mu.Unlock()

	if subs == nil || projectFile == "" {
		return nil
	}

	return p.writeProjectToFile(BackupFilepath(projectFile))
}
