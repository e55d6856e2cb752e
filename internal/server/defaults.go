package server

import "github.com/danmuck/artwire/internal/imagehash"

const restrictedImage = `
        _.-^^---....,,--
    _--                  --_
   <                        >)
   |                         |
    \._                   _./
       ` + "```" + `--. . , ; .--'''
             | |   |
          .-=||  | |=-.
          ` + "`" + `-=#$%&%$#=-'
             | ;  :|
    _____.,-#%&$@%#&#~,._____
`

const publicImage = `
   |\__/,|   (` + "`" + `\
 _.|o o  |_   ) )
-(((---(((--------
`

// DefaultImages seeds a fresh server: one restricted, one public without a caption.
func DefaultImages() []Image {
	return []Image{
		{Caption: "Access Restricted", Body: restrictedImage, Hash: imagehash.Sum(restrictedImage), Restricted: true},
		{Caption: "", Body: publicImage, Hash: imagehash.Sum(publicImage), Restricted: false},
	}
}
