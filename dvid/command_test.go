package dvid

import (
	. "github.com/janelia-flyem/go/gocheck"
)

func (s *DataSuite) TestCommand(c *C) {
	cmd := Command([]string{"put-chunk", "3,-2", "workers=4", "chunk.raw", "extra"})
	c.Assert(cmd.Name(), Equals, "put-chunk")
	c.Assert(cmd.String(), Equals, "put-chunk 3,-2 workers=4 chunk.raw extra")

	value, found := cmd.Parameter("workers")
	c.Assert(found, Equals, true)
	c.Assert(value, Equals, "4")
	_, found = cmd.Parameter("missing")
	c.Assert(found, Equals, false)

	var coord, filename string
	overflow := cmd.CommandArgs(&coord, &filename)
	c.Assert(coord, Equals, "3,-2")
	c.Assert(filename, Equals, "chunk.raw")
	c.Assert(overflow, DeepEquals, []string{"extra"})

	var a, b string
	Command([]string{"version"}).CommandArgs(&a, &b)
	c.Assert(a, Equals, "")
	c.Assert(b, Equals, "")
	c.Assert(Command(nil).Name(), Equals, "")
}
