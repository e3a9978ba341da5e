// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

// dependencies maps a loader handle to the job handles it is blocked on,
// in the order they were started. It is only touched under the
// coordination lock.
type dependencies map[Handle][]Handle

// add records that loader waits on job.
func (d dependencies) add(loader, job Handle) {
	d[loader] = append(d[loader], job)
}

// complete removes job from every list and returns the number of loaders
// that became unblocked by it.
func (d dependencies) complete(job Handle) int {
	unblocked := 0
	for loader, jobs := range d {
		for i, h := range jobs {
			if h != job {
				continue
			}
			jobs = append(jobs[:i], jobs[i+1:]...)
			if len(jobs) == 0 {
				unblocked++
				delete(d, loader)
			} else {
				d[loader] = jobs
			}
			break
		}
	}
	return unblocked
}

// blocked reports whether loader still waits on at least one job.
func (d dependencies) blocked(loader Handle) bool {
	return len(d[loader]) > 0
}

// remove forgets every edge of loader.
func (d dependencies) remove(loader Handle) {
	delete(d, loader)
}

// count returns the number of blocked loaders.
func (d dependencies) count() int {
	n := 0
	for _, jobs := range d {
		if len(jobs) > 0 {
			n++
		}
	}
	return n
}
