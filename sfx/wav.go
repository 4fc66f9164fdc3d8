package sfx

import (
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/orcaman/writerseeker"
)

// Format WAV 输出格式：双声道 16 位
var Format = beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}

// Render 把音效编码为 WAV 写入 w
func Render(w io.Writer, name Name, vol float64) error {
	s, err := Stream(name, vol)
	if err != nil {
		return err
	}
	// wav.Encode 写完后要回填文件头，需要可 Seek 的目标
	buf := &writerseeker.WriterSeeker{}
	if err := wav.Encode(buf, s, Format); err != nil {
		return err
	}
	_, err = io.Copy(w, buf.Reader())
	return err
}
