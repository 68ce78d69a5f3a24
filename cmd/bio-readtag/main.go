// Copyright 2019 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-readtag annotates and summarizes BAM/SAM records by read name and aux
tag.  The 'tag' subcommand merges an externally supplied per-read edit set
into a record stream; the 'stats' subcommand aggregates tag
presence/value statistics over an optionally filtered, optionally
region-restricted stream.
*/

import (
	"v.io/x/lib/cmdline"
)

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-readtag",
			Short:    "Annotate and summarize alignment records by read name and tag",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdTag(),
				newCmdStats(),
			},
		})
}
